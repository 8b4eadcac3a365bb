package kube

// Package kube implements the sandbox.Client contract on self-hosted
// Kubernetes pods. Each sandbox is one pod running the appdock sandbox
// daemon; commands and sessions are proxied over the daemon's HTTP API.

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/appdock/appdock/pkg/sandbox/daemon"
	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Config defines how sandbox pods are created.
type Config struct {
	// Namespace where sandbox pods will be created.
	Namespace string

	// Image is the sandbox daemon image.
	Image string

	// Port the sandbox daemon listens on inside the pod.
	Port int
}

// Client is a Kubernetes-backed implementation of sandbox.Client.
type Client struct {
	client *kubernetes.Clientset
	cfg    Config

	mu   sync.RWMutex
	byID map[string]string // sandbox id -> pod IP
}

var _ sandbox.Client = (*Client)(nil)

// New creates a Kubernetes-backed sandbox client using the in-cluster
// configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "appdock-sandbox"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Image == "" {
		return nil, fmt.Errorf("sandbox image is required")
	}

	restCfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return &Client{
		client: client,
		cfg:    cfg,
		byID:   make(map[string]string),
	}, nil
}

// Create allocates a new sandbox pod and waits until its daemon is reachable.
func (c *Client) Create(ctx context.Context, language string) (*sandbox.Sandbox, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	podName := podNameFor(id)

	podSpec := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: c.cfg.Namespace,
			Labels: map[string]string{
				"app":     "appdock-sandbox",
				"sandbox": id,
				"managed": "appdock",
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Volumes: []corev1.Volume{
				{
					Name: "workspace",
					VolumeSource: corev1.VolumeSource{
						EmptyDir: &corev1.EmptyDirVolumeSource{},
					},
				},
			},
			Containers: []corev1.Container{
				{
					Name:       "sandbox",
					Image:      c.cfg.Image,
					WorkingDir: "/sandbox",
					VolumeMounts: []corev1.VolumeMount{
						{
							Name:      "workspace",
							MountPath: "/sandbox/workspace",
						},
					},
					Env: []corev1.EnvVar{
						{Name: "SANDBOX_ROOT", Value: "/sandbox/workspace"},
						{Name: "SANDBOX_PORT", Value: fmt.Sprintf("%d", c.cfg.Port)},
						{Name: "SANDBOX_LANGUAGE", Value: language},
					},
					Ports: []corev1.ContainerPort{
						{
							Name:          "http",
							ContainerPort: int32(c.cfg.Port),
						},
					},
				},
			},
		},
	}

	_, err := c.client.CoreV1().Pods(c.cfg.Namespace).Create(ctx, podSpec, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create sandbox pod: %w", err)
	}

	pod, err := c.waitForRunning(ctx, podName)
	if err != nil {
		return nil, err
	}

	// A Running pod does not mean the daemon has bound its port yet.
	d := daemon.NewClient(pod.Status.PodIP, c.cfg.Port)
	if err := waitForDaemon(ctx, d, daemonPollInterval, daemonPollTimeout); err != nil {
		return nil, fmt.Errorf("sandbox pod %s: %w", podName, err)
	}

	c.setCached(id, pod.Status.PodIP)

	return &sandbox.Sandbox{
		ID:        id,
		State:     sandbox.StateRunning,
		CreatedAt: pod.CreationTimestamp.Time,
	}, nil
}

// Get returns the sandbox with the given id.
func (c *Client) Get(ctx context.Context, id string) (*sandbox.Sandbox, error) {
	pod, err := c.client.CoreV1().Pods(c.cfg.Namespace).Get(ctx, podNameFor(id), metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return nil, &sandbox.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("get sandbox pod: %w", err)
	}

	c.setCached(id, pod.Status.PodIP)

	return &sandbox.Sandbox{
		ID:        id,
		State:     stateFromPhase(pod.Status.Phase),
		CreatedAt: pod.CreationTimestamp.Time,
	}, nil
}

// Delete destroys the sandbox pod.
func (c *Client) Delete(ctx context.Context, sb *sandbox.Sandbox) error {
	c.mu.Lock()
	delete(c.byID, sb.ID)
	c.mu.Unlock()

	propagation := metav1.DeletePropagationBackground
	err := c.client.CoreV1().Pods(c.cfg.Namespace).Delete(ctx, podNameFor(sb.ID), metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return &sandbox.NotFoundError{ID: sb.ID}
		}
		return fmt.Errorf("delete sandbox pod: %w", err)
	}
	return nil
}

// RunCommand executes a shell command through the pod's daemon.
func (c *Client) RunCommand(ctx context.Context, sb *sandbox.Sandbox, command string) (*sandbox.CommandResult, error) {
	d, err := c.daemonFor(ctx, sb.ID)
	if err != nil {
		return nil, err
	}

	res, err := d.Exec(ctx, &daemon.ExecRequest{Command: command})
	if err != nil {
		return nil, err
	}

	output := res.Stdout
	if res.Stderr != "" {
		output += res.Stderr
	}

	return &sandbox.CommandResult{
		ExitCode: res.ExitCode,
		Output:   output,
	}, nil
}

// OpenSession creates a named session through the pod's daemon.
func (c *Client) OpenSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	d, err := c.daemonFor(ctx, sb.ID)
	if err != nil {
		return err
	}
	return d.OpenSession(ctx, name)
}

// RunSessionCommand starts a command in a named session without waiting for
// it to complete.
func (c *Client) RunSessionCommand(ctx context.Context, sb *sandbox.Sandbox, session string, command string) (*sandbox.SessionCommand, error) {
	d, err := c.daemonFor(ctx, sb.ID)
	if err != nil {
		return nil, err
	}

	res, err := d.StartSessionCommand(ctx, session, command)
	if err != nil {
		return nil, err
	}

	return &sandbox.SessionCommand{
		CommandID: res.CommandID,
		StartedAt: res.StartedAt,
	}, nil
}

// CloseSession terminates a named session. A missing session is not an error;
// the daemon treats the close as a no-op.
func (c *Client) CloseSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	d, err := c.daemonFor(ctx, sb.ID)
	if err != nil {
		if sandbox.IsNotFound(err) {
			return nil
		}
		return err
	}
	return d.CloseSession(ctx, name)
}

func (c *Client) daemonFor(ctx context.Context, id string) (*daemon.Client, error) {
	c.mu.RLock()
	ip := c.byID[id]
	c.mu.RUnlock()

	if ip == "" {
		pod, err := c.client.CoreV1().Pods(c.cfg.Namespace).Get(ctx, podNameFor(id), metav1.GetOptions{})
		if err != nil {
			if k8serrors.IsNotFound(err) {
				return nil, &sandbox.NotFoundError{ID: id}
			}
			return nil, fmt.Errorf("get sandbox pod: %w", err)
		}
		ip = pod.Status.PodIP
		if ip == "" {
			return nil, fmt.Errorf("sandbox pod %s has no IP yet", podNameFor(id))
		}
		c.setCached(id, ip)
	}

	return daemon.NewClient(ip, c.cfg.Port), nil
}

func (c *Client) waitForRunning(ctx context.Context, podName string) (*corev1.Pod, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.After(2 * time.Minute)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for pod %s: %w", podName, ctx.Err())
		case <-timeout:
			return nil, fmt.Errorf("timed out waiting for pod %s to become running", podName)
		case <-ticker.C:
			pod, err := c.client.CoreV1().Pods(c.cfg.Namespace).Get(ctx, podName, metav1.GetOptions{})
			if err != nil {
				continue
			}
			if pod.Status.Phase == corev1.PodRunning && pod.Status.PodIP != "" {
				return pod, nil
			}
		}
	}
}

const (
	daemonPollInterval = 500 * time.Millisecond
	daemonPollTimeout  = 1 * time.Minute
)

// waitForDaemon polls the daemon's health endpoint until it answers.
func waitForDaemon(ctx context.Context, d *daemon.Client, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for sandbox daemon: %w", ctx.Err())
		case <-deadline:
			return fmt.Errorf("timed out waiting for sandbox daemon")
		case <-ticker.C:
			if err := d.Health(ctx); err == nil {
				return nil
			}
		}
	}
}

func (c *Client) setCached(id, ip string) {
	if ip == "" {
		return
	}
	c.mu.Lock()
	c.byID[id] = ip
	c.mu.Unlock()
}

func podNameFor(id string) string {
	return "sandbox-" + id
}

func stateFromPhase(phase corev1.PodPhase) sandbox.State {
	switch phase {
	case corev1.PodPending:
		return sandbox.StateCreating
	case corev1.PodRunning:
		return sandbox.StateRunning
	case corev1.PodSucceeded, corev1.PodFailed:
		return sandbox.StateDestroyed
	default:
		return sandbox.StateFailed
	}
}

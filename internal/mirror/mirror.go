package mirror

import (
	"context"
	"strings"
	"sync"
	"time"

	"pats-cloud/config"
	"pats-cloud/pkg/logger"
)

// Provider is one mirror backend variant. Upload pushes a local file to the
// backend under key; it is called from the dispatcher's consumer only.
type Provider interface {
	Name() string
	Upload(ctx context.Context, sourcePath, key, contentType string) error
}

type task struct {
	sourcePath  string
	key         string
	contentType string
}

// Dispatcher mirrors finished uploads to a secondary backend, best effort.
// Dispatch never blocks the caller and failures never propagate: they are
// logged by the consumer goroutine and dropped, with no retry.
type Dispatcher struct {
	provider Provider
	prefix   string
	logger   *logger.Logger
	timeout  time.Duration

	tasks chan task
	wg    sync.WaitGroup
	once  sync.Once
}

// NewDispatcher wires a dispatcher around a provider. A nil provider yields
// an unconfigured dispatcher whose Dispatch is a no-op.
func NewDispatcher(p Provider, prefix string, l *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		provider: p,
		prefix:   strings.Trim(prefix, "/"),
		logger:   l,
		timeout:  10 * time.Minute,
		tasks:    make(chan task, 64),
	}
	if p != nil {
		d.wg.Add(1)
		go d.consume()
	}
	return d
}

// FromConfig selects the provider variant once at startup: "" disables
// mirroring, "s3" targets an object store, "drive" the legacy drive backend.
// A misconfigured provider degrades to the disabled variant with a warning
// rather than failing startup; the user's own uploads must keep working.
func FromConfig(ctx context.Context, cfg *config.Config, l *logger.Logger) *Dispatcher {
	var p Provider
	var err error
	switch strings.ToLower(cfg.CloudProvider) {
	case "":
	case "s3":
		p, err = NewS3Provider(ctx, S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	case "drive":
		p, err = NewDriveProvider(ctx, DriveConfig{
			ClientID:     cfg.DriveClientID,
			ClientSecret: cfg.DriveClientSecret,
			RefreshToken: cfg.DriveRefreshToken,
			FolderID:     cfg.DriveFolderID,
		})
	default:
		l.Warnf("Unknown CLOUD_PROVIDER %q, mirroring disabled", cfg.CloudProvider)
	}
	if err != nil {
		l.Warnf("Mirror backend %q unavailable, mirroring disabled: %s", cfg.CloudProvider, err)
		p = nil
	}
	return NewDispatcher(p, cfg.CloudPrefix, l)
}

// IsConfigured reports whether a mirror backend is currently usable.
func (d *Dispatcher) IsConfigured() bool {
	return d.provider != nil
}

// Dispatch queues a mirror copy of sourcePath under prefix/folder/name.
// No-op when unconfigured; if the queue is full the task is dropped.
func (d *Dispatcher) Dispatch(sourcePath, folder, name, contentType string) {
	if d.provider == nil {
		return
	}
	t := task{sourcePath: sourcePath, key: d.key(folder, name), contentType: contentType}
	select {
	case d.tasks <- t:
	default:
		d.logger.Warnf("Mirror queue full, dropping %s", t.key)
	}
}

// Close stops accepting tasks and waits for in-flight uploads to finish.
func (d *Dispatcher) Close() {
	if d.provider == nil {
		return
	}
	d.once.Do(func() { close(d.tasks) })
	d.wg.Wait()
}

// key joins prefix, folder and name with forward slashes regardless of host
// path conventions.
func (d *Dispatcher) key(folder, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.prefix, folder, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func (d *Dispatcher) consume() {
	defer d.wg.Done()
	for t := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.provider.Upload(ctx, t.sourcePath, t.key, t.contentType); err != nil {
			d.logger.Errorf("Mirror to %s failed for %s: %s", d.provider.Name(), t.key, err)
		} else {
			d.logger.Infof("Mirrored %s to %s", t.key, d.provider.Name())
		}
		cancel()
	}
}

package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"meterpay/internal/observability/metrics"
)

// ErrShareUnavailable is returned by a Sharer that has no share mechanism right now.
var ErrShareUnavailable = errors.New("export: share unavailable")

// Sharer hands a stored artifact to a share or save collaborator.
type Sharer interface {
	Share(ctx context.Context, artifact Artifact, location string) error
}

// DeliveryError reports a failed write or share.
type DeliveryError struct {
	Op       string
	Filename string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("export: %s %s: %v", e.Op, e.Filename, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Receipt tells the caller where the artifact ended up.
type Receipt struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Location string `json:"location"`
	Shared   bool   `json:"shared"`
}

// Deliverer writes artifacts under a storage root and then offers them to a Sharer.
type Deliverer struct {
	root   string
	sharer Sharer
	logger *log.Logger
}

// NewDeliverer constructs a deliverer. sharer may be nil.
func NewDeliverer(root string, sharer Sharer, logger *log.Logger) (*Deliverer, error) {
	if root == "" {
		return nil, errors.New("export deliverer: empty storage root")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Deliverer{root: root, sharer: sharer, logger: logger}, nil
}

// Deliver stores the artifact and shares it. Without a usable share mechanism
// the receipt reports the storage location instead of failing.
func (d *Deliverer) Deliver(ctx context.Context, artifact Artifact) (Receipt, error) {
	name := artifact.Filename
	if name == "" || filepath.Base(name) != name {
		metrics.IncExportDelivery(metrics.DeliveryError)
		return Receipt{}, &DeliveryError{Op: "write", Filename: name, Err: errors.New("invalid filename")}
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		metrics.IncExportDelivery(metrics.DeliveryError)
		return Receipt{}, &DeliveryError{Op: "write", Filename: name, Err: err}
	}
	location := filepath.Join(d.root, name)
	if err := os.WriteFile(location, artifact.Content, 0o644); err != nil {
		metrics.IncExportDelivery(metrics.DeliveryError)
		return Receipt{}, &DeliveryError{Op: "write", Filename: name, Err: err}
	}

	receipt := Receipt{Filename: name, MIMEType: artifact.MIMEType, Location: location}
	if d.sharer == nil {
		metrics.IncExportDelivery(metrics.DeliveryStored)
		return receipt, nil
	}
	if err := d.sharer.Share(ctx, artifact, location); err != nil {
		if errors.Is(err, ErrShareUnavailable) {
			d.logger.Printf("export: share unavailable, stored file=%s", location)
			metrics.IncExportDelivery(metrics.DeliveryStored)
			return receipt, nil
		}
		metrics.IncExportDelivery(metrics.DeliveryError)
		return receipt, &DeliveryError{Op: "share", Filename: name, Err: err}
	}
	receipt.Shared = true
	metrics.IncExportDelivery(metrics.DeliveryShared)
	return receipt, nil
}

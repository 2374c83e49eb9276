package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/core/ports"
	"github.com/anderzubi/orthopin/internal/pkg/align"
)

// Mode is the alignment lifecycle state.
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeUploadPending    Mode = "upload_pending_image"
	ModeUploadAligning   Mode = "upload_aligning"
	ModeUploadReady      Mode = "upload_ready"
	ModeExistingAligning Mode = "existing_aligning"
)

// overlayStore is the slice of OverlayService the aligner needs: creating
// the record for a committed upload and saving corners for an edited one.
type overlayStore interface {
	Create(ctx context.Context, o *domain.Overlay) error
	GetByID(ctx context.Context, id string) (*domain.Overlay, error)
	UpdateCorners(ctx context.Context, id string, corners domain.QuadCorners) error
	SetVisibility(ctx context.Context, id string, visible bool) error
}

// AlignmentService runs the interactive overlay alignment lifecycle. At
// most one session is active at a time; every mutation happens under the
// mutex, synchronously in the calling event handler.
type AlignmentService struct {
	overlays overlayStore
	events   ports.EventPublisher

	mu         sync.Mutex
	mode       Mode
	session    *align.Session
	pending    *domain.PendingImage
	editing    *domain.Overlay
	wasVisible bool
	captured   *align.Quad
}

// NewAlignmentService creates an idle aligner.
func NewAlignmentService(overlays overlayStore, events ports.EventPublisher) *AlignmentService {
	return &AlignmentService{overlays: overlays, mode: ModeIdle, events: events}
}

// Mode returns the current lifecycle state.
func (s *AlignmentService) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SelectImage registers a freshly uploaded image whose geometry is not
// known on the map yet.
func (s *AlignmentService) SelectImage(img domain.PendingImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeIdle {
		return domain.ErrSessionActive
	}
	if img.WidthPx <= 0 || img.HeightPx <= 0 {
		return &domain.DegenerateGeometryError{Reason: "image has no area"}
	}
	s.pending = &img
	s.mode = ModeUploadPending
	return nil
}

// BeginUploadAlignment seeds the initial rectangle into the current map
// view and opens the interactive session.
func (s *AlignmentService) BeginUploadAlignment(vp domain.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeUploadPending {
		return fmt.Errorf("cannot start upload alignment from mode %s: %w", s.mode, domain.ErrNoSession)
	}
	seed, err := align.SeedState(vp, s.pending.WidthPx, s.pending.HeightPx)
	if err != nil {
		return err
	}
	sess, err := align.NewSession(seed)
	if err != nil {
		return err
	}
	s.session = sess
	s.captured = nil
	s.mode = ModeUploadAligning
	return nil
}

// BeginEdit reopens alignment for a persisted overlay. The stored corners
// seed the session through inverse geometry, and the overlay's live
// visibility is suspended so the editing preview does not double-render.
func (s *AlignmentService) BeginEdit(ctx context.Context, overlayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeIdle {
		return domain.ErrSessionActive
	}
	o, err := s.overlays.GetByID(ctx, overlayID)
	if err != nil {
		return err
	}
	seed, err := align.Inverse(o.GeoCorners)
	if err != nil {
		return fmt.Errorf("overlay %s has unusable corners: %w", overlayID, err)
	}
	sess, err := align.NewSession(seed)
	if err != nil {
		return err
	}

	s.wasVisible = o.Visible
	if o.Visible {
		if err := s.overlays.SetVisibility(ctx, o.ID, false); err != nil {
			return fmt.Errorf("suspend overlay visibility: %w", err)
		}
	}

	s.session = sess
	s.editing = o
	s.mode = ModeExistingAligning
	return nil
}

// StartDrag opens a handle gesture on the active session.
func (s *AlignmentService) StartDrag(h align.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	return s.session.StartDrag(h)
}

// Drag applies a pointer move. A move that does not match an open gesture
// is logged and dropped rather than surfaced, per the session contract.
func (s *AlignmentService) Drag(ctx context.Context, h align.Handle, pointer domain.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	if err := s.session.Drag(h, pointer); err != nil {
		var ise *domain.InvalidSessionStateError
		if errors.As(err, &ise) {
			slog.Warn("dropped stray drag event", "handle", h, "reason", ise.Op)
			return nil
		}
		return err
	}
	s.publishPreview(ctx)
	return nil
}

// EndDrag closes the open gesture.
func (s *AlignmentService) EndDrag(h align.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	if err := s.session.EndDrag(h); err != nil {
		var ise *domain.InvalidSessionStateError
		if errors.As(err, &ise) {
			slog.Warn("dropped stray drag end", "handle", h, "reason", ise.Op)
			return nil
		}
		return err
	}
	return nil
}

// UpdateRotation sets the rotation from the degrees form field.
func (s *AlignmentService) UpdateRotation(ctx context.Context, degrees float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	if err := s.session.SetRotationDegrees(degrees); err != nil {
		return err
	}
	s.publishPreview(ctx)
	return nil
}

// UpdateAnchor switches the fixed corner for subsequent scale gestures.
func (s *AlignmentService) UpdateAnchor(a align.Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	return s.session.SetAnchor(a)
}

// Geometry derives the current overlay quadrilateral.
func (s *AlignmentService) Geometry() (align.Quad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return align.Quad{}, domain.ErrNoSession
	}
	return s.session.Quad()
}

// CompleteAlignment commits the session. For an upload it captures the
// geometry and waits for SubmitUpload; for an edit it overwrites the
// record's corners, restores visibility, and returns to idle.
func (s *AlignmentService) CompleteAlignment(ctx context.Context) (align.Quad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeUploadAligning:
		q, err := s.session.Quad()
		if err != nil {
			return align.Quad{}, err
		}
		s.captured = &q
		s.mode = ModeUploadReady
		return q, nil

	case ModeExistingAligning:
		q, err := s.session.Quad()
		if err != nil {
			return align.Quad{}, err
		}
		if err := s.overlays.UpdateCorners(ctx, s.editing.ID, q.Corners); err != nil {
			return align.Quad{}, err
		}
		if err := s.restoreVisibility(ctx); err != nil {
			slog.Warn("restore overlay visibility", "overlay", s.editing.ID, "error", err)
		}
		s.clearSession()
		return q, nil
	}
	return align.Quad{}, domain.ErrNoSession
}

// ReopenAlignment returns a committed upload to the interactive session
// for further adjustment.
func (s *AlignmentService) ReopenAlignment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeUploadReady {
		return domain.ErrNoSession
	}
	s.captured = nil
	s.mode = ModeUploadAligning
	return nil
}

// SubmitUpload persists the captured upload geometry as a new overlay and
// ends the session.
func (s *AlignmentService) SubmitUpload(ctx context.Context) (*domain.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeUploadReady || s.captured == nil {
		return nil, domain.ErrNoSession
	}

	img := s.pending
	o := &domain.Overlay{
		Name:         img.Name,
		ImageRef:     img.ImageRef,
		GeoCorners:   s.captured.Corners,
		PixelCorners: domain.ImagePixelCorners(img.WidthPx, img.HeightPx),
		WidthPx:      img.WidthPx,
		HeightPx:     img.HeightPx,
		Opacity:      img.Opacity,
		Visible:      true,
		CaptureDate:  img.CaptureDate,
	}
	if err := s.overlays.Create(ctx, o); err != nil {
		return nil, err
	}
	s.clearSession()
	return o, nil
}

// ResetAlignment restores the session's seed state.
func (s *AlignmentService) ResetAlignment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAligning(); err != nil {
		return err
	}
	s.session.Reset()
	return nil
}

// CancelAlignment discards the session from any state. Cancellation is
// synchronous and total: nothing partial is persisted, and a suspended
// overlay gets its visibility back.
func (s *AlignmentService) CancelAlignment(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeIdle {
		return nil
	}
	if s.mode == ModeExistingAligning {
		if err := s.restoreVisibility(ctx); err != nil {
			slog.Warn("restore overlay visibility on cancel", "overlay", s.editing.ID, "error", err)
		}
	}
	s.clearSession()
	return nil
}

func (s *AlignmentService) requireAligning() error {
	if s.mode != ModeUploadAligning && s.mode != ModeExistingAligning {
		return domain.ErrNoSession
	}
	return nil
}

func (s *AlignmentService) restoreVisibility(ctx context.Context) error {
	if s.editing == nil || !s.wasVisible {
		return nil
	}
	return s.overlays.SetVisibility(ctx, s.editing.ID, true)
}

func (s *AlignmentService) clearSession() {
	s.session = nil
	s.pending = nil
	s.editing = nil
	s.captured = nil
	s.wasVisible = false
	s.mode = ModeIdle
}

// publishPreview broadcasts the live quadrilateral so connected clients
// can re-render the in-progress overlay. Best effort.
func (s *AlignmentService) publishPreview(ctx context.Context) {
	if s.events == nil {
		return
	}
	q, err := s.session.Quad()
	if err != nil {
		return
	}
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.events.PublishAlignmentPreview(ctx, data); err != nil {
		slog.Debug("alignment preview publish failed", "error", err)
	}
}

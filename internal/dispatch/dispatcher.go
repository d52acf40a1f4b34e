package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/rental-contracts/internal/model"
)

// CancelledMarker is appended to a contract's document folder on cancellation.
const CancelledMarker = "[CANCELLED]"

type Poster interface {
	Post(ctx context.Context, url string, payload Payload) error
}

type Renamer interface {
	Rename(ctx context.Context, contractID, from, to string) error
}

type URLs struct {
	Activation    string
	Cancellation  string
	Handover      string
	Return        string
	DepositRefund string
}

func (u URLs) For(event Event) string {
	switch event {
	case EventActivation:
		return u.Activation
	case EventCancellation:
		return u.Cancellation
	case EventHandover:
		return u.Handover
	case EventReturn:
		return u.Return
	case EventDepositRefund:
		return u.DepositRefund
	}
	return ""
}

// Dispatcher runs best-effort side effects after a primary write has committed.
// Every failure is logged and dropped; nothing is retried here.
type Dispatcher struct {
	poster  Poster
	renamer Renamer
	urls    URLs
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func NewDispatcher(poster Poster, renamer Renamer, urls URLs, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		poster:  poster,
		renamer: renamer,
		urls:    urls,
		timeout: timeout,
		log:     log.With().Str("component", "dispatcher").Logger(),
		now:     time.Now,
	}
}

// detached keeps side effects alive after the request that triggered them is done.
func (d *Dispatcher) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if d.timeout > 0 {
		return context.WithTimeout(ctx, d.timeout)
	}
	return context.WithCancel(ctx)
}

func (d *Dispatcher) payload(event Event, c model.Contract) Payload {
	return Payload{
		Event:          event,
		ContractID:     c.ID.String(),
		ContractNumber: c.ContractNumber,
		Timestamp:      d.now().UTC(),
	}
}

func (d *Dispatcher) Activated(ctx context.Context, c model.Contract) {
	d.send(ctx, d.payload(EventActivation, c))
}

func (d *Dispatcher) Cancelled(ctx context.Context, c model.Contract, prior model.Status) {
	payload := d.payload(EventCancellation, c)
	payload.TenantName = c.Tenant.DisplayName()
	payload.PriorStatus = string(prior)
	d.send(ctx, payload)
}

func (d *Dispatcher) Protocol(ctx context.Context, event Event, c model.Contract) {
	payload := d.payload(event, c)
	payload.TenantName = c.Tenant.DisplayName()
	d.send(ctx, payload)
}

// RenameCancelled appends the cancellation marker to the folder name and
// returns the new name. ok is false when nothing was renamed.
func (d *Dispatcher) RenameCancelled(ctx context.Context, c model.Contract) (string, bool) {
	if d.renamer == nil || c.FolderName == "" {
		return "", false
	}
	target := WithCancelledMarker(c.FolderName)
	if target == c.FolderName {
		return "", false
	}

	ctx, cancel := d.detached(ctx)
	defer cancel()

	if err := d.renamer.Rename(ctx, c.ID.String(), c.FolderName, target); err != nil {
		d.log.Warn().Err(err).
			Str("contract_id", c.ID.String()).
			Str("contract_number", c.ContractNumber).
			Str("effect", "folder_rename").
			Msg("side effect failed")
		return "", false
	}
	return target, true
}

func (d *Dispatcher) send(ctx context.Context, payload Payload) {
	url := d.urls.For(payload.Event)
	if url == "" || d.poster == nil {
		d.log.Debug().Str("event", string(payload.Event)).Msg("webhook not configured, skipping")
		return
	}

	ctx, cancel := d.detached(ctx)
	defer cancel()

	if err := d.poster.Post(ctx, url, payload); err != nil {
		d.log.Warn().Err(err).
			Str("contract_id", payload.ContractID).
			Str("contract_number", payload.ContractNumber).
			Str("effect", string(payload.Event)).
			Msg("side effect failed")
		return
	}
	d.log.Info().
		Str("contract_id", payload.ContractID).
		Str("effect", string(payload.Event)).
		Msg("side effect dispatched")
}

func WithCancelledMarker(folder string) string {
	folder = strings.TrimSpace(folder)
	if strings.HasSuffix(folder, CancelledMarker) {
		return folder
	}
	return folder + " " + CancelledMarker
}

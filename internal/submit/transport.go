package submit

import (
	"context"
	"fmt"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

// Transport delivers an assembled result pack to wherever submissions are
// collected. Delivery is all-or-nothing: Deliver returns nil only when the
// pack has verifiably left the building, so the caller may persist the
// submission record. There are no partial successes and no retries here —
// retry policy belongs to the caller.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, pack *model.ResultPack) error
}

// NewTransport builds the transport selected by configuration.
func NewTransport(cfg *config.Config, log zerolog.Logger) (Transport, error) {
	switch cfg.SubmitTransport {
	case config.TransportRemote:
		if cfg.SubmitURL == "" {
			return nil, fmt.Errorf("remote transport requires SUBMIT_URL")
		}
		return NewRemoteTransport(cfg.SubmitURL, cfg.SubmitToken, log), nil
	case config.TransportFile:
		return NewFileTransport(cfg.ExportDir, log), nil
	case config.TransportMail:
		if cfg.SubmitURL == "" {
			return nil, fmt.Errorf("mail transport requires SUBMIT_URL (recipient address)")
		}
		return NewMailTransport(cfg.SubmitURL, cfg.ExportDir, log), nil
	default:
		return nil, fmt.Errorf("unknown submit transport %q", cfg.SubmitTransport)
	}
}

// packFileName builds the export file name from the pack's identity and
// variant: "10А_Иванов Иван_variant26.json". An anonymous pack falls back to
// the variant alone.
func packFileName(pack *model.ResultPack) string {
	if pack.Identity.Complete() {
		return fmt.Sprintf("%s_%s_%s.json", pack.Identity.ClassName, pack.Identity.FullName, pack.Variant)
	}
	return fmt.Sprintf("%s.json", pack.Variant)
}

package submit

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

// MailTransport exports the pack to disk and hands the client a prefilled
// mailto: link, so the student attaches the saved file and sends it to the
// teacher's address. The mail client cannot attach files from a URL, hence
// the two-step flow.
type MailTransport struct {
	recipient string
	file      *FileTransport
	log       zerolog.Logger
}

// NewMailTransport creates a MailTransport addressed to recipient, exporting
// pack files into dir.
func NewMailTransport(recipient, dir string, log zerolog.Logger) *MailTransport {
	return &MailTransport{
		recipient: recipient,
		file:      NewFileTransport(dir, log),
		log:       log.With().Str("component", "mail_transport").Logger(),
	}
}

func (t *MailTransport) Name() string { return "mail" }

// Deliver saves the pack file. The mailto link is produced separately by
// MailtoURL; delivery counts as done once the file exists, mirroring the
// file transport.
func (t *MailTransport) Deliver(ctx context.Context, pack *model.ResultPack) error {
	return t.file.Deliver(ctx, pack)
}

// MailtoURL builds the prefilled mail link for the pack: subject carries the
// class, name and variant, the body names the attachment to add.
func (t *MailTransport) MailtoURL(pack *model.ResultPack) string {
	subject := fmt.Sprintf("Работа: %s", pack.Variant)
	if pack.Identity.Complete() {
		subject = fmt.Sprintf("Работа: %s, %s, %s", pack.Identity.ClassName, pack.Identity.FullName, pack.Variant)
	}
	body := fmt.Sprintf("Прикрепите файл %s и отправьте письмо.", packFileName(pack))

	q := url.Values{}
	q.Set("subject", subject)
	q.Set("body", body)
	return "mailto:" + t.recipient + "?" + q.Encode()
}

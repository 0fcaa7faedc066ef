package handlers

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/SundayYogurt/inkpress-account-svc/internal/dto"
	"github.com/SundayYogurt/inkpress-account-svc/internal/services"
)

// MailHandler consumes mail events off the mail topic and routes them to
// the SMTP relay by message key.
type MailHandler struct {
	MailService *services.MailService
}

func NewMailHandler(ms *services.MailService) *MailHandler {
	return &MailHandler{MailService: ms}
}

func (h *MailHandler) HandleMessage(key, value []byte) error {
	var event dto.MailEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("invalid mail event payload: %s", string(value))
		return err
	}

	log.Printf("[MAIL] event=%s email=%s user=%s", string(key), event.Email, event.Username)

	switch string(key) {
	case dto.EventVerifyEmail:
		return h.MailService.SendVerifyEmail(event.Email, event.Username, event.Code)
	case dto.EventEmailChange:
		return h.MailService.SendEmailChangeEmail(event.Email, event.Username, event.Code)
	case dto.EventPasswordReset:
		return h.MailService.SendPasswordResetEmail(event.Email, event.Username, event.Code)
	case dto.EventPasswordReissued:
		return h.MailService.SendNewPasswordEmail(event.Email, event.Username, event.Code)
	default:
		return fmt.Errorf("unknown mail event key %q", string(key))
	}
}

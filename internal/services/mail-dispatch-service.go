package services

import (
	"encoding/json"

	"github.com/SundayYogurt/inkpress-account-svc/internal/dto"
	"github.com/SundayYogurt/inkpress-account-svc/internal/interfaces"
)

// MailDispatchService hands account mails off to the mail topic. Delivery
// happens asynchronously in the relay consumer.
type MailDispatchService struct {
	producer interfaces.ProducerHandler
}

func NewMailDispatchService(producer interfaces.ProducerHandler) *MailDispatchService {
	return &MailDispatchService{producer: producer}
}

func (s *MailDispatchService) publish(event string, payload dto.MailEvent) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.producer.PublishMessage([]byte(event), value)
}

func (s *MailDispatchService) SendVerification(email, username, code string) error {
	return s.publish(dto.EventVerifyEmail, dto.MailEvent{Username: username, Email: email, Code: code})
}

func (s *MailDispatchService) SendEmailChangeVerification(email, username, code string) error {
	return s.publish(dto.EventEmailChange, dto.MailEvent{Username: username, Email: email, Code: code})
}

func (s *MailDispatchService) SendPasswordReset(email, username, code string) error {
	return s.publish(dto.EventPasswordReset, dto.MailEvent{Username: username, Email: email, Code: code})
}

func (s *MailDispatchService) SendNewPassword(email, username, newPassword string) error {
	return s.publish(dto.EventPasswordReissued, dto.MailEvent{Username: username, Email: email, Code: newPassword})
}

package auth

import (
	"fmt"
	"strings"

	"chat-relay/domain/group"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Whitespace-only names or passcodes are as invalid as empty ones
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("unable to register notblank validation: %v", err))
	}
	return v
}

// CreateGroupRequest lengths are counted in characters, not bytes.
type CreateGroupRequest struct {
	Name     string `validate:"notblank,max=50"`
	Passcode string `validate:"notblank,max=50"`
}

type JoinGroupRequest struct {
	Name     string `validate:"notblank"`
	Passcode string `validate:"notblank"`
}

type GroupRequest struct {
	Name string `validate:"notblank"`
}

// MessageRequest is validated on the trimmed body.
type MessageRequest struct {
	Group string `validate:"notblank"`
	Body  string `validate:"required,max=1000"`
}

func ValidateCreateGroup(name, passcode string) group.Outcome {
	if err := validate.Struct(CreateGroupRequest{Name: name, Passcode: passcode}); err != nil {
		return group.OutcomeInvalidInput
	}
	return group.OutcomeCreated
}

func ValidateJoinGroup(name, passcode string) group.Outcome {
	if err := validate.Struct(JoinGroupRequest{Name: name, Passcode: passcode}); err != nil {
		return group.OutcomeInvalidInput
	}
	return group.OutcomeJoined
}

func ValidateGroupName(name string) bool {
	return validate.Struct(GroupRequest{Name: name}) == nil
}

// ValidateMessage trims the body and tells why it cannot be accepted.
// The returned body is the one to store.
func ValidateMessage(name, body string) (string, group.Outcome) {
	trimmed := strings.TrimSpace(body)
	err := validate.Struct(MessageRequest{Group: name, Body: trimmed})
	if err == nil {
		return trimmed, group.OutcomeAccepted
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "", group.OutcomeInvalidInput
	}
	for _, fe := range validationErrors {
		if fe.Field() == "Group" {
			return "", group.OutcomeInvalidInput
		}
	}
	for _, fe := range validationErrors {
		if fe.Tag() == "max" {
			return "", group.OutcomeTooLong
		}
	}
	return "", group.OutcomeEmptyMessage
}

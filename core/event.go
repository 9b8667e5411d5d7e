package core

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Action 是用户交互行为的类型，取值固定。
type Action string

const (
	ActionClick    Action = "click"
	ActionBookmark Action = "bookmark"
	ActionNavigate Action = "navigate"
)

// actionWeights 是构建交互矩阵时每种行为的权重。
var actionWeights = map[Action]float64{
	ActionClick:    1.0,
	ActionNavigate: 2.0,
	ActionBookmark: 3.0,
}

// Actions 返回全部可识别的行为（按权重升序）。
func Actions() []Action {
	return []Action{ActionClick, ActionNavigate, ActionBookmark}
}

// Weight 返回行为权重；未知行为返回 false，调用方不得当作 0 权重处理。
func (a Action) Weight() (float64, bool) {
	w, ok := actionWeights[a]
	return w, ok
}

// Valid 判断是否为可识别的行为。
func (a Action) Valid() bool {
	_, ok := actionWeights[a]
	return ok
}

// ParseAction 解析行为字符串，大小写与首尾空白不敏感。
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !a.Valid() {
		return "", NewValidationError(ModuleEventLog, "eventlog: unknown action %q", raw)
	}
	return a, nil
}

// InteractionEvent 是一条用户交互记录，只追加、不修改。
type InteractionEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	UserID        int64     `json:"user_id" validate:"gte=0"`
	ItemID        int64     `json:"item_id" validate:"gte=0"`
	Action        Action    `json:"action" validate:"required,oneof=click bookmark navigate"`
	SourceContext string    `json:"from,omitempty"`
}

// Weight 返回该事件在交互矩阵中的贡献权重。
func (ev InteractionEvent) Weight() float64 {
	w, _ := ev.Action.Weight()
	return w
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateEvent 在日志边界校验事件，失败时返回 INVALID_INPUT 错误。
func ValidateEvent(ev InteractionEvent) error {
	err := getValidator().Struct(ev)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Field() == "Action" {
			return NewValidationError(ModuleEventLog, "eventlog: unknown action %q", string(ev.Action))
		}
		return NewValidationError(ModuleEventLog, "eventlog: invalid %s (%s=%v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return &DomainError{
		Module:  ModuleEventLog,
		Code:    ErrorCodeInvalidInput,
		Message: "eventlog: invalid event",
		Err:     err,
	}
}

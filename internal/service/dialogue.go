package service

import (
	"context"
	"fmt"
	"strings"

	"bot-service/internal/models"
	"bot-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DialogueCache — необязательный сквозной кэш состояния (Redis).
// nil отключает кэширование; БД всегда остаётся источником истины.
type DialogueCache interface {
	GetDialogue(ctx context.Context, convID int64) (*models.DialogueState, error)
	SetDialogue(ctx context.Context, st *models.DialogueState) error
	DelDialogue(ctx context.Context, convID int64) error
}

type DialogueService interface {
	Get(ctx context.Context, convID int64) (*models.DialogueState, error)
	StartCheckout(ctx context.Context, convID int64) (*models.DialogueState, error)
	Advance(ctx context.Context, convID int64, input string) (*models.DialogueState, error)
	Reset(ctx context.Context, convID int64) error
	RememberMessage(ctx context.Context, convID int64, messageID int64) error
}

type dialogueService struct {
	dialogues repository.DialogueRepo
	carts     repository.CartRepo
	cache     DialogueCache
	validate  *validator.Validate
	log       *zap.Logger
}

func NewDialogueService(dialogues repository.DialogueRepo, carts repository.CartRepo, cache DialogueCache, log *zap.Logger) DialogueService {
	return &dialogueService{
		dialogues: dialogues,
		carts:     carts,
		cache:     cache,
		validate:  validator.New(),
		log:       log,
	}
}

// Get возвращает состояние диалога, создавая STEP_BROWSING при первом событии.
func (s *dialogueService) Get(ctx context.Context, convID int64) (*models.DialogueState, error) {
	if s.cache != nil {
		if st, err := s.cache.GetDialogue(ctx, convID); err == nil && st != nil {
			return st, nil
		}
	}

	st, err := s.dialogues.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &models.DialogueState{
			ConversationID: convID,
			Step:           models.StepBrowsing,
		}
		if err := s.dialogues.Save(ctx, st); err != nil {
			return nil, err
		}
	}

	s.cachePut(ctx, st)
	return st, nil
}

// StartCheckout: Browsing -> AwaitingName, только при непустой корзине.
func (s *dialogueService) StartCheckout(ctx context.Context, convID int64) (*models.DialogueState, error) {
	st, err := s.Get(ctx, convID)
	if err != nil {
		return nil, err
	}

	cnt, err := s.carts.Count(ctx, convID)
	if err != nil {
		return nil, err
	}
	if cnt == 0 {
		return st, ErrEmptyCart
	}

	st.Step = models.StepAwaitingName
	st.Name, st.Phone, st.Address, st.PaymentMethod = "", "", "", ""
	if err := s.dialogues.Save(ctx, st); err != nil {
		return nil, err
	}
	s.cachePut(ctx, st)
	return st, nil
}

// Advance валидирует ввод текущего шага и двигает автомат вперёд.
// Невалидный ввод оставляет шаг и уже собранные поля нетронутыми.
func (s *dialogueService) Advance(ctx context.Context, convID int64, input string) (*models.DialogueState, error) {
	st, err := s.Get(ctx, convID)
	if err != nil {
		return nil, err
	}

	input = strings.TrimSpace(input)

	switch st.Step {
	case models.StepAwaitingName:
		if err := s.validate.Var(input, "required,min=2,max=100"); err != nil {
			return st, fmt.Errorf("%w: name", ErrValidation)
		}
		st.Name = input
		st.Step = models.StepAwaitingPhone

	case models.StepAwaitingPhone:
		phone := strings.ReplaceAll(input, " ", "")
		if err := s.validate.Var(phone, "required,e164"); err != nil {
			return st, fmt.Errorf("%w: phone", ErrValidation)
		}
		st.Phone = phone
		st.Step = models.StepAwaitingAddress

	case models.StepAwaitingAddress:
		if err := s.validate.Var(input, "required,min=5,max=300"); err != nil {
			return st, fmt.Errorf("%w: address", ErrValidation)
		}
		st.Address = input
		st.Step = models.StepAwaitingPayment

	case models.StepAwaitingPayment:
		method := strings.ToLower(input)
		if err := s.validate.Var(method, "required,oneof=cash card"); err != nil {
			return st, fmt.Errorf("%w: payment method", ErrValidation)
		}
		st.PaymentMethod = method
		st.Step = models.StepConfirmed

	default:
		// в Browsing/Confirmed свободный текст автомат не двигает
		return st, fmt.Errorf("%w: unexpected input for step %s", ErrValidation, st.Step)
	}

	if err := s.dialogues.Save(ctx, st); err != nil {
		return nil, err
	}
	s.cachePut(ctx, st)
	return st, nil
}

// Reset возвращает диалог в Browsing и сбрасывает собранные поля.
func (s *dialogueService) Reset(ctx context.Context, convID int64) error {
	if _, err := s.Get(ctx, convID); err != nil {
		return err
	}
	if err := s.dialogues.Reset(ctx, convID); err != nil {
		return err
	}
	s.cacheDrop(ctx, convID)
	return nil
}

func (s *dialogueService) RememberMessage(ctx context.Context, convID int64, messageID int64) error {
	if _, err := s.Get(ctx, convID); err != nil {
		return err
	}
	if err := s.dialogues.SetLastMessageID(ctx, convID, messageID); err != nil {
		return err
	}
	s.cacheDrop(ctx, convID)
	return nil
}

func (s *dialogueService) cachePut(ctx context.Context, st *models.DialogueState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetDialogue(ctx, st); err != nil {
		s.log.Warn("Не удалось обновить кэш диалога", zap.Int64("conversation_id", st.ConversationID), zap.Error(err))
	}
}

func (s *dialogueService) cacheDrop(ctx context.Context, convID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelDialogue(ctx, convID); err != nil {
		s.log.Warn("Не удалось сбросить кэш диалога", zap.Int64("conversation_id", convID), zap.Error(err))
	}
}

package clientsvc

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Input содержит данные клиента для создания и обновления.
// Active учитывается только в Update: новый клиент всегда активен.
type Input struct {
	FirstName      string
	LastName       string
	DocumentNumber string
	BirthDate      time.Time
	Active         bool
}

// Service управляет карточками клиентов.
type Service struct {
	clients domain.ClientRepository
	tx      domain.TxManager
	logger  *log.Entry
}

// NewService конструирует сервис клиентов.
func NewService(clients domain.ClientRepository, tx domain.TxManager, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "client-service")
	}
	return &Service{clients: clients, tx: tx, logger: logger}
}

// ListAll возвращает всех клиентов.
func (s *Service) ListAll(ctx context.Context) ([]domain.Client, error) {
	return s.list(ctx, domain.ClientFilter{})
}

// ListActive возвращает только активных клиентов.
func (s *Service) ListActive(ctx context.Context) ([]domain.Client, error) {
	return s.list(ctx, domain.ClientFilter{ActiveOnly: true})
}

// SearchByFirstName ищет по подстроке имени без учёта регистра.
func (s *Service) SearchByFirstName(ctx context.Context, fragment string) ([]domain.Client, error) {
	return s.list(ctx, domain.ClientFilter{FirstNameContains: fragment})
}

// SearchByLastName ищет по подстроке фамилии без учёта регистра.
func (s *Service) SearchByLastName(ctx context.Context, fragment string) ([]domain.Client, error) {
	return s.list(ctx, domain.ClientFilter{LastNameContains: fragment})
}

// CountActive возвращает число активных клиентов.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	n, err := s.clients.Count(ctx, domain.ClientFilter{ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("count active clients: %w", err)
	}
	return n, nil
}

// Get возвращает клиента; found == false, если записи нет.
func (s *Service) Get(ctx context.Context, id int64) (domain.Client, bool, error) {
	client, err := s.clients.Get(ctx, id)
	if domain.IsNotFound(err) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, fmt.Errorf("get client %d: %w", id, err)
	}
	return client, true, nil
}

// Create регистрирует клиента, проверяя уникальность документа и пары имя/фамилия.
func (s *Service) Create(ctx context.Context, in Input) (domain.Client, error) {
	var client domain.Client
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.ensureDocumentFree(ctx, in.DocumentNumber, 0); err != nil {
			return err
		}
		if err := s.ensureNameFree(ctx, in.FirstName, in.LastName, 0); err != nil {
			return err
		}

		client = domain.Client{
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			DocumentNumber: in.DocumentNumber,
			BirthDate:      in.BirthDate,
			Active:         true,
		}
		return s.clients.Save(ctx, &client)
	})
	if err != nil {
		return domain.Client{}, s.reject("create client", err)
	}

	s.logger.WithField("client_id", client.ID).Info("client created")
	return client, nil
}

// Update перезаписывает все поля клиента.
// Пара имя/фамилия проверяется, только если она изменилась без учёта регистра.
func (s *Service) Update(ctx context.Context, id int64, in Input) (domain.Client, error) {
	var client domain.Client
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.clients.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ensureDocumentFree(ctx, in.DocumentNumber, id); err != nil {
			return err
		}
		if !current.SameName(in.FirstName, in.LastName) {
			if err := s.ensureNameFree(ctx, in.FirstName, in.LastName, id); err != nil {
				return err
			}
		}

		current.FirstName = in.FirstName
		current.LastName = in.LastName
		current.DocumentNumber = in.DocumentNumber
		current.BirthDate = in.BirthDate
		current.Active = in.Active
		if err := s.clients.Save(ctx, &current); err != nil {
			return err
		}
		client = current
		return nil
	})
	if err != nil {
		return domain.Client{}, s.reject("update client", err)
	}
	return client, nil
}

// Delete удаляет клиента; ErrClientNotFound, если его нет.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.clients.Delete(ctx, id); err != nil {
		return s.reject("delete client", err)
	}
	s.logger.WithField("client_id", id).Info("client deleted")
	return nil
}

// ToggleActive инвертирует флаг активности.
func (s *Service) ToggleActive(ctx context.Context, id int64) (domain.Client, error) {
	var client domain.Client
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.clients.Get(ctx, id)
		if err != nil {
			return err
		}
		current.Active = !current.Active
		if err := s.clients.Save(ctx, &current); err != nil {
			return err
		}
		client = current
		return nil
	})
	if err != nil {
		return domain.Client{}, s.reject("toggle client", err)
	}
	return client, nil
}

func (s *Service) list(ctx context.Context, filter domain.ClientFilter) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (s *Service) ensureDocumentFree(ctx context.Context, documentNumber string, excludeID int64) error {
	exists, err := s.clients.ExistsByDocument(ctx, documentNumber, excludeID)
	if err != nil {
		return fmt.Errorf("check document number: %w", err)
	}
	if exists {
		return domain.ErrDuplicateDocument
	}
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, firstName, lastName string, excludeID int64) error {
	exists, err := s.clients.ExistsByName(ctx, firstName, lastName, excludeID)
	if err != nil {
		return fmt.Errorf("check client name: %w", err)
	}
	if exists {
		return domain.ErrDuplicateClientName
	}
	return nil
}

// reject логирует отказ и оборачивает ошибку контекстом операции.
func (s *Service) reject(op string, err error) error {
	entry := s.logger.WithError(err).WithField("op", op)
	if domain.IsNotFound(err) || domain.IsDuplicate(err) {
		entry.Warn("client operation rejected")
	} else {
		entry.Error("client operation failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}

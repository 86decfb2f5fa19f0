package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

type txKey struct{}

// unitOfWork копит откаты изменений и отложенные записи одной единицы работы.
type unitOfWork struct {
	manager *TxManager
	undo    []func()
	commit  []func()
}

// TxManager сериализует единицы работы над in-memory хранилищем.
// При ошибке или панике fn изменения репозиториев откатываются в обратном порядке.
type TxManager struct {
	mu sync.Mutex
}

// NewTxManager создаёт менеджер единиц работы для in-memory хранилища.
func NewTxManager() *TxManager {
	return &TxManager{}
}

// Do выполняет fn под общей блокировкой. Вложенный вызов переиспользует её.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if uow, ok := ctx.Value(txKey{}).(*unitOfWork); ok && uow.manager == m {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	uow := &unitOfWork{manager: m}
	committed := false
	defer func() {
		if committed {
			return
		}
		for i := len(uow.undo) - 1; i >= 0; i-- {
			uow.undo[i]()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, uow)); err != nil {
		return err
	}
	committed = true
	for _, apply := range uow.commit {
		apply()
	}
	return nil
}

// onRollback регистрирует откат, если ctx принадлежит единице работы.
func onRollback(ctx context.Context, undo func()) {
	if uow, ok := ctx.Value(txKey{}).(*unitOfWork); ok {
		uow.undo = append(uow.undo, undo)
	}
}

// afterCommit откладывает apply до фиксации единицы работы.
// Возвращает false вне единицы работы: тогда вызывающий применяет запись сам.
func afterCommit(ctx context.Context, apply func()) bool {
	uow, ok := ctx.Value(txKey{}).(*unitOfWork)
	if !ok {
		return false
	}
	uow.commit = append(uow.commit, apply)
	return true
}

// restoreOnRollback запоминает текущее значение ключа. Вызывается под блокировкой репозитория.
func restoreOnRollback[K comparable, V any](ctx context.Context, mu sync.Locker, items map[K]V, key K) {
	prev, existed := items[key]
	onRollback(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if existed {
			items[key] = prev
			return
		}
		delete(items, key)
	})
}

var _ domain.TxManager = (*TxManager)(nil)

package repository

import (
	"context"
	"sync"
)

// Tx выполняет функцию в рамках одной транзакции хранилища. Мутация
// подписки и пересчет проекции аккаунта должны попадать в один вызов
// Within, чтобы читатели не видели рассинхронизованное состояние.
type Tx interface {
	// Within выполняет fn; при ошибке все изменения, сделанные через
	// контекст fn, откатываются.
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

type afterCommitKey struct{}

// AfterCommit накапливает функции, которые реализация Tx выполняет
// после фиксации транзакции. Инвалидация кеша до коммита открывает
// окно, в которое конкурентный читатель закеширует еще не
// зафиксированное состояние.
type AfterCommit struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithAfterCommit вешает на контекст коллектор отложенных функций.
// Вызывается реализациями Tx вокруг fn; вложенный Within переиспользует
// коллектор внешней транзакции.
func WithAfterCommit(ctx context.Context) (context.Context, *AfterCommit) {
	hooks := &AfterCommit{}
	return context.WithValue(ctx, afterCommitKey{}, hooks), hooks
}

// OnCommit откладывает fn до фиксации текущей транзакции. Вне
// транзакции возвращает false, и вызывающий выполняет fn сам.
func OnCommit(ctx context.Context, fn func(ctx context.Context)) bool {
	hooks, ok := ctx.Value(afterCommitKey{}).(*AfterCommit)
	if !ok {
		return false
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.fns = append(hooks.fns, fn)
	return true
}

// InTx сообщает, выполняется ли контекст внутри транзакции.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(afterCommitKey{}).(*AfterCommit)
	return ok
}

// Run выполняет отложенные функции в порядке регистрации. Транзакция к
// этому моменту уже зафиксирована, поэтому ctx берется внешний.
func (h *AfterCommit) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}

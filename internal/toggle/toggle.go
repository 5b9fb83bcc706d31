// toggle — оптимистичное переключение (лайк, подписка) с откатом.
//
// Автомат на каждый переключатель:
//
//	Idle -> Pending -> {Committed, RolledBack} -> Idle
//
// При входе в Pending значение инвертируется, а счётчик сдвигается на ±1
// ещё до сетевого вызова. Ошибка действия возвращает оба к исходным
// значениям. Пока переключатель в Pending, повторные вызовы ничего не делают.
package toggle

import (
	"context"
	"errors"
	"sync"
)

// ErrPending — действие уже выполняется; повторный вызов проигнорирован.
var ErrPending = errors.New("toggle: action in flight")

type Phase int

const (
	Idle Phase = iota
	Pending
)

func (p Phase) String() string {
	if p == Pending {
		return "pending"
	}
	return "idle"
}

// Outcome — итог последнего действия.
type Outcome int

const (
	None Outcome = iota
	Committed
	RolledBack
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "none"
	}
}

// State — снимок для отображения.
type State struct {
	On    bool
	Count int
	Phase Phase
	Last  Outcome
}

// Action — сетевой вызов; want — значение, к которому ведёт переключение.
type Action func(ctx context.Context, want bool) error

type Toggle struct {
	mu    sync.Mutex
	on    bool
	count int
	phase Phase
	last  Outcome
}

// New — начальное состояние Idle с серверными значениями.
func New(on bool, count int) *Toggle {
	return &Toggle{on: on, count: count}
}

func (t *Toggle) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return State{On: t.on, Count: t.count, Phase: t.phase, Last: t.last}
}

// Reset подменяет значения серверными; в Pending ничего не делает.
func (t *Toggle) Reset(on bool, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == Pending {
		return
	}
	t.on, t.count, t.last = on, count, None
}

// Do выполняет оптимистичное переключение.
// Возвращает Committed и nil либо RolledBack и ошибку действия;
// если переключатель занят — None и ErrPending.
func (t *Toggle) Do(ctx context.Context, action Action) (Outcome, error) {
	t.mu.Lock()
	if t.phase == Pending {
		t.mu.Unlock()
		return None, ErrPending
	}

	prevOn, prevCount := t.on, t.count
	t.on = !t.on
	if t.on {
		t.count++
	} else {
		t.count--
	}
	want := t.on
	t.phase = Pending
	t.mu.Unlock()

	err := action(ctx, want)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.phase = Idle
	if err != nil {
		t.on, t.count = prevOn, prevCount
		t.last = RolledBack
		return RolledBack, err
	}

	t.last = Committed
	return Committed, nil
}

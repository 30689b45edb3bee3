package httpclient

import (
	"context"
	"sync"
	"time"

	"apikit/pkg/apierrors"
)

// call - одна разделяемая попытка GET запроса. Все ожидающие получают
// один и тот же исход.
type call struct {
	done chan struct{}
	body []byte
	err  error
}

// dedupCache разделяет одинаковые GET запросы внутри окна дедупликации.
// Ключ - (метод, путь, сериализованный query). Вся мутация карты происходит
// под мьютексом: в многопоточной среде синхронизация обязательна.
type dedupCache struct {
	mu     sync.Mutex
	window time.Duration
	calls  map[string]*call
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{
		window: window,
		calls:  make(map[string]*call),
	}
}

// Do выполняет fn для ключа либо присоединяется к уже выполняющемуся
// вызову внутри окна. Отмена контекста ожидающего освобождает только его;
// разделяемый вызов продолжается.
func (d *dedupCache) Do(ctx context.Context, key string, fn func() ([]byte, error)) ([]byte, error) {
	d.mu.Lock()
	if existing, ok := d.calls[key]; ok {
		d.mu.Unlock()
		select {
		case <-existing.done:
			return existing.body, existing.err
		case <-ctx.Done():
			return nil, apierrors.FromTransport(ctx.Err())
		}
	}

	c := &call{done: make(chan struct{})}
	d.calls[key] = c
	d.mu.Unlock()

	// Запись удаляется по истечении окна независимо от исхода вызова.
	time.AfterFunc(d.window, func() {
		d.remove(key, c)
	})

	c.body, c.err = fn()
	close(c.done)

	// Отмененный лидер не должен отравлять следующий запрос на весь срок окна.
	if apierrors.IsCancelled(c.err) {
		d.remove(key, c)
	}

	return c.body, c.err
}

// remove удаляет запись, только если она все еще принадлежит этому вызову.
func (d *dedupCache) remove(key string, c *call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if current, ok := d.calls[key]; ok && current == c {
		delete(d.calls, key)
	}
}

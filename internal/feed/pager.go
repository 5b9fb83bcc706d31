// feed — постраничная лента и фоновое наблюдение за ней.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// DefaultLimit — размер страницы ленты.
const DefaultLimit = 20

// Fetcher — источник страниц ленты (api.Client).
type Fetcher interface {
	Feed(ctx context.Context, offset, limit int) (*models.FeedResponse, error)
}

// Pager держит загруженную часть ленты.
//
// Правила:
//   - первая страница заменяет содержимое, следующие дописываются в конец;
//   - offset сдвигается на число пришедших постов;
//   - короткая страница означает конец ленты (HasMore=false);
//   - пока идёт загрузка или лента кончилась, Load/LoadMore ничего не делают.
type Pager struct {
	src   Fetcher
	limit int

	mu      sync.Mutex
	posts   []models.Post
	offset  int
	hasMore bool
	loading bool
}

func NewPager(src Fetcher, limit int) *Pager {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Pager{src: src, limit: limit, hasMore: true}
}

// Load загружает первую страницу.
func (p *Pager) Load(ctx context.Context) (bool, error) {
	return p.fetch(ctx, func() int { return 0 })
}

// LoadMore загружает следующую страницу с текущего offset.
func (p *Pager) LoadMore(ctx context.Context) (bool, error) {
	return p.fetch(ctx, func() int { return p.offset })
}

// Seek начинает ленту с произвольного offset (флаг --offset CLI).
func (p *Pager) Seek(offset int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	p.offset = offset
}

// fetch возвращает false, если загрузка не выполнялась (занят или конец).
func (p *Pager) fetch(ctx context.Context, at func() int) (bool, error) {
	const op = "feed.Pager.fetch"

	p.mu.Lock()
	if p.loading || !p.hasMore {
		p.mu.Unlock()
		return false, nil
	}
	p.loading = true
	offset := at()
	p.mu.Unlock()

	page, err := p.src.Feed(ctx, offset, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}

	if offset == 0 {
		p.posts = append([]models.Post(nil), page.Results...)
	} else {
		p.posts = append(p.posts, page.Results...)
	}
	p.offset = offset + len(page.Results)
	if len(page.Results) < p.limit {
		p.hasMore = false
	}

	return true, nil
}

// Posts — копия загруженных постов.
func (p *Pager) Posts() []models.Post {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]models.Post(nil), p.posts...)
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.hasMore
}

func (p *Pager) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.offset
}

// Prepend добавляет только что созданный пост в начало.
func (p *Pager) Prepend(post models.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.posts = append([]models.Post{post}, p.posts...)
}

// Replace подменяет пост с тем же ID.
func (p *Pager) Replace(post models.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.posts {
		if p.posts[i].ID == post.ID {
			p.posts[i] = post
		}
	}
}

// Remove убирает пост по ID.
func (p *Pager) Remove(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.posts[:0]
	for _, post := range p.posts {
		if post.ID != id {
			out = append(out, post)
		}
	}
	p.posts = out
}

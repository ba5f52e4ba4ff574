package session

import "shoplive/internal/core/domain"

// commentRing keeps the most recent comments in insertion order.
type commentRing struct {
	buf   []domain.Comment
	start int
	n     int
}

func newCommentRing(capacity int) *commentRing {
	return &commentRing{buf: make([]domain.Comment, capacity)}
}

func (r *commentRing) push(c domain.Comment) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = c
		r.n++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

// snapshot copies the buffer oldest first.
func (r *commentRing) snapshot() []domain.Comment {
	out := make([]domain.Comment, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

package scan

// Stream is a lazy, restartable token sequence. Tokens are produced on
// demand and memoized, so Reset and Seek never rescan.
type Stream struct {
	next func() Token
	toks []Token
	pos  int
	done bool
}

// NewStream wraps a token producer. The producer must return an EOF token
// once input is exhausted and keep returning it.
func NewStream(next func() Token) *Stream {
	return &Stream{next: next}
}

func (s *Stream) fill(n int) {
	for !s.done && len(s.toks) <= n {
		tok := s.next()
		s.toks = append(s.toks, tok)
		if tok.Kind == EOF {
			s.done = true
		}
	}
}

// PeekN returns the token n positions ahead without consuming anything.
func (s *Stream) PeekN(n int) Token {
	s.fill(s.pos + n)
	i := s.pos + n
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() Token {
	return s.PeekN(0)
}

// Next consumes and returns the next token. At end of input it keeps
// returning EOF.
func (s *Stream) Next() Token {
	tok := s.Peek()
	if tok.Kind != EOF {
		s.pos++
	}
	return tok
}

// Pos returns the index of the next token.
func (s *Stream) Pos() int {
	return s.pos
}

// Seek moves to a position previously returned by Pos.
func (s *Stream) Seek(pos int) {
	s.fill(pos)
	if pos > len(s.toks)-1 {
		pos = len(s.toks) - 1
	}
	if pos < 0 {
		pos = 0
	}
	s.pos = pos
}

// Reset restarts the stream from the first token.
func (s *Stream) Reset() {
	s.pos = 0
}

// At returns the token at absolute index i.
func (s *Stream) At(i int) Token {
	s.fill(i)
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

// All drains the stream and returns every token including the final EOF.
// The read position is left unchanged.
func (s *Stream) All() []Token {
	for !s.done {
		s.fill(len(s.toks))
	}
	return s.toks
}

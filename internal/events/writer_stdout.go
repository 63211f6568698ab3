package events

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// StdoutWriter prints one JSON envelope per line, with its topic.
type StdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

func (s *StdoutWriter) Write(ctx context.Context, topic string, e Envelope) error {
	line, err := json.Marshal(struct {
		Topic string `json:"topic"`
		Envelope
	}{Topic: topic, Envelope: e})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(append(line, '\n'))
	return err
}

func (s *StdoutWriter) Close(_ context.Context) error {
	return nil
}

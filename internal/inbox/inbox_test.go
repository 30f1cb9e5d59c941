package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

const sampleEmail = "From: Tom Partner <tom@fund.vc>\r\n" +
	"To: deals@fund.vc\r\n" +
	"Subject: Intro: Acme\r\n" +
	"Date: Mon, 05 Jan 2026 09:00:00 +0000\r\n" +
	"Message-ID: <abc123@mail.fund.vc>\r\n" +
	"\r\n" +
	"I wanted to introduce you to Jane, founder of Acme, who is raising a seed round\r\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadFile_Email(t *testing.T) {
	path := writeFile(t, t.TempDir(), "intro.eml", sampleEmail)

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc123@mail.fund.vc", doc.SourceID)
	require.Equal(t, deal.OriginEmail, doc.Origin)
	require.Equal(t, "tom@fund.vc", *doc.SenderAddress)
	require.Equal(t, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), doc.ReceivedAt)
	require.Equal(t, sampleEmail, doc.RawText)
}

func TestReadFile_EmailWithoutHeaders(t *testing.T) {
	path := writeFile(t, t.TempDir(), "note.eml", "just a forwarded note without headers")

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "note", doc.SourceID)
	require.Nil(t, doc.SenderAddress)
	require.False(t, doc.ReceivedAt.IsZero())
}

func TestReadFile_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "voltra-page.TXT", "Introducing Voltra, a battery startup.")

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "voltra-page", doc.SourceID)
	require.Equal(t, deal.OriginCrawl, doc.Origin)
	require.Equal(t, "Introducing Voltra, a battery startup.", doc.RawText)
}

func TestReadFile_JSON(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		content    string
		wantSource string
		wantOrigin deal.Origin
		wantCode   errors.ErrorCode
	}{
		{"full", `{"source_id":"feed-1","origin":"crawl","raw_text":"We are Orbit.","received_at":"2026-02-01T00:00:00Z"}`, "feed-1", deal.OriginCrawl, ""},
		{"defaults", `{"raw_text":"We are Orbit."}`, "defaults", deal.OriginFeed, ""},
		{"bad origin", `{"raw_text":"x","origin":"fax"}`, "", "", errors.ErrInvalidInput},
		{"malformed", `{"raw_text":`, "", "", errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadFile(writeFile(t, dir, tt.name+".json", tt.content))
			if tt.wantCode != "" {
				require.True(t, errors.Is(err, tt.wantCode), "err = %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantSource, doc.SourceID)
			require.Equal(t, tt.wantOrigin, doc.Origin)
			require.False(t, doc.ReceivedAt.IsZero())
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(writeFile(t, dir, "deck.pdf", "%PDF"))
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)

	_, err = ReadFile(filepath.Join(dir, "missing.eml"))
	require.True(t, errors.Is(err, errors.ErrNotFound), "err = %v", err)

	big := writeFile(t, dir, "big.txt", strings.Repeat("a", MaxFileSize+1))
	_, err = ReadFile(big)
	require.True(t, errors.Is(err, errors.ErrInvalidInput), "err = %v", err)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "We are Orbit.")
	writeFile(t, dir, "a.eml", sampleEmail)
	writeFile(t, dir, "c.json", `{"raw_text":`)
	writeFile(t, dir, ".hidden.txt", "ignored")
	writeFile(t, dir, "deck.pdf", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0700))

	docs, failed, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "abc123@mail.fund.vc", docs[0].SourceID)
	require.Equal(t, "b", docs[1].SourceID)
	require.Len(t, failed, 1)
	require.Equal(t, filepath.Join(dir, "c.json"), failed[0].Path)
	require.Equal(t, errors.ErrInvalidInput, failed[0].Error.Code)

	_, _, err = ReadDir(filepath.Join(dir, "nope"))
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.eml": true, "a.TXT": true, "dir/a.json": true,
		"a.pdf": false, "a": false, "a.eml.tmp": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zapcore.InfoLevel)

	w, err := NewWatcher(dir, WithSettle(20*time.Millisecond), WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer w.Close()

	var (
		mu   sync.Mutex
		seen []string
	)
	got := make(chan struct{}, 10)
	handle := func(_ context.Context, doc deal.RawDocument) error {
		mu.Lock()
		seen = append(seen, doc.SourceID)
		mu.Unlock()
		got <- struct{}{}
		if doc.SourceID == "bad" {
			return errors.NewInvalidInput(doc.SourceID, "raw_text", "raw_text is empty")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, handle) }()

	writeFile(t, dir, "ignored.pdf", "x")
	writeFile(t, dir, "intro.eml", sampleEmail)
	writeFile(t, dir, "bad.txt", " ")

	for range 2 {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for inbox documents")
		}
	}
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"abc123@mail.fund.vc", "bad"}, seen)
	require.Equal(t, 1, logs.FilterMessage("inbox document failed").Len())
}

func TestWatcher_NanosecondSettle(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, WithSettle(time.Nanosecond))
	require.NoError(t, err)
	defer w.Close()

	got := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, doc deal.RawDocument) error {
			got <- doc.SourceID
			return nil
		})
	}()

	writeFile(t, dir, "quick.txt", "We are Orbit.")
	select {
	case id := <-got:
		require.Equal(t, "quick", id)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbox document")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"))
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)
}

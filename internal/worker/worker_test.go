package worker

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/queue"
)

type statusCall struct {
	status resume.Status
	parsed *resume.Parsed
	errMsg string
}

type fakeRepo struct {
	calls []statusCall
}

func (f *fakeRepo) Create(context.Context, *resume.Resume) error { return nil }
func (f *fakeRepo) Get(context.Context, string, string) (*resume.Resume, error) {
	return nil, resume.ErrNotFound
}
func (f *fakeRepo) List(context.Context, string) ([]resume.Resume, error) { return nil, nil }
func (f *fakeRepo) Delete(context.Context, string, string) error          { return nil }

func (f *fakeRepo) SetStatus(_ context.Context, _ string, st resume.Status, parsed *resume.Parsed, errMsg string) error {
	f.calls = append(f.calls, statusCall{status: st, parsed: parsed, errMsg: errMsg})
	return nil
}

type fakeStore struct {
	data     []byte
	err      error
	failures int
	calls    int
}

func (f *fakeStore) Download(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil && f.calls <= f.failures {
		return nil, f.err
	}
	if f.err != nil && f.failures == 0 {
		return nil, f.err
	}
	return f.data, nil
}

type fakeStatus struct {
	events []queue.StatusEvent
}

func (f *fakeStatus) PublishStatus(_ context.Context, ev queue.StatusEvent) error {
	f.events = append(f.events, ev)
	return nil
}

var testJob = queue.ResumeJob{
	ResumeID:  "res-1",
	UserID:    "user-1",
	ObjectKey: "user-1/res-1",
	MIMEType:  "text/plain",
}

const parsedReply = `{"skills":["Go","SQL"],"education":["BS CS, Georgia Tech"],"experience":["Backend intern at Acme"],"projects":["Course scheduler"],"gpa":"3.8"}`

func TestProcessHappyPath(t *testing.T) {
	repo := &fakeRepo{}
	status := &fakeStatus{}
	w := &Worker{
		Resumes: repo,
		Store:   &fakeStore{data: []byte("Go SQL backend intern")},
		Parser: llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
			require.Contains(t, req.Prompt, "Go SQL backend intern")
			return "```json\n" + parsedReply + "\n```", nil
		}),
		Status: status,
	}

	err := w.Process(context.Background(), testJob)
	require.NoError(t, err)

	require.Len(t, repo.calls, 2)
	require.Equal(t, resume.StatusProcessing, repo.calls[0].status)
	require.Equal(t, resume.StatusParsed, repo.calls[1].status)
	require.NotNil(t, repo.calls[1].parsed)
	require.Equal(t, []string{"Go", "SQL"}, repo.calls[1].parsed.Skills)
	require.Equal(t, "3.8", repo.calls[1].parsed.GPA)

	require.Len(t, status.events, 2)
	require.Equal(t, "parsed", status.events[1].Status)
	require.Equal(t, "res-1", status.events[1].ResumeID)
}

func TestProcessDownloadRetries(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{data: []byte("text"), err: errors.New("timeout"), failures: 2}
	w := &Worker{
		Resumes: repo,
		Store:   store,
		Parser: llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
			return parsedReply, nil
		}),
	}

	require.NoError(t, w.Process(context.Background(), testJob))
	require.Equal(t, 3, store.calls)
	require.Equal(t, resume.StatusParsed, repo.calls[len(repo.calls)-1].status)
}

func TestProcessDownloadExhausted(t *testing.T) {
	repo := &fakeRepo{}
	w := &Worker{
		Resumes: repo,
		Store:   &fakeStore{err: errors.New("bucket gone")},
		Parser: llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
			t.Fatal("parser should not be reached")
			return "", nil
		}),
	}

	err := w.Process(context.Background(), testJob)
	require.Error(t, err)
	last := repo.calls[len(repo.calls)-1]
	require.Equal(t, resume.StatusFailed, last.status)
	require.Equal(t, "download failed", last.errMsg)
}

func TestProcessUnreadableFileAcks(t *testing.T) {
	repo := &fakeRepo{}
	job := testJob
	job.MIMEType = "application/pdf"
	w := &Worker{
		Resumes: repo,
		Store:   &fakeStore{data: []byte("not a pdf")},
		Parser: llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
			t.Fatal("parser should not be reached")
			return "", nil
		}),
	}

	// Permanent failure: no error so the message is acked, not redelivered.
	require.NoError(t, w.Process(context.Background(), job))
	last := repo.calls[len(repo.calls)-1]
	require.Equal(t, resume.StatusFailed, last.status)
}

func TestProcessRetriesInvalidJSON(t *testing.T) {
	repo := &fakeRepo{}
	var attempts int
	w := &Worker{
		Resumes: repo,
		Store:   &fakeStore{data: []byte("text")},
		Parser: llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
			attempts++
			if attempts == 1 {
				return "Sure! Here is the resume summary you asked for.", nil
			}
			return parsedReply, nil
		}),
	}

	require.NoError(t, w.Process(context.Background(), testJob))
	require.Equal(t, 2, attempts)
	require.Equal(t, resume.StatusParsed, repo.calls[len(repo.calls)-1].status)
}

func TestProcessParserExhausted(t *testing.T) {
	repo := &fakeRepo{}
	w := &Worker{
		Resumes: repo,
		Store:   &fakeStore{data: []byte("text")},
		Parser: llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
			return "", errors.New("rate limited")
		}),
	}

	err := w.Process(context.Background(), testJob)
	require.Error(t, err)
	last := repo.calls[len(repo.calls)-1]
	require.Equal(t, resume.StatusFailed, last.status)
	require.Equal(t, "parsing failed", last.errMsg)
}

func TestRetryDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryDo(ctx, 3, 10*time.Millisecond, func(context.Context) error {
		return errors.New("nope")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTruncatesLongText(t *testing.T) {
	long := make([]byte, maxPromptChars+5000)
	for i := range long {
		long[i] = 'a'
	}
	var promptLen int
	w := &Worker{
		Resumes: &fakeRepo{},
		Store:   &fakeStore{data: long},
		Parser: llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
			promptLen = len(req.Prompt)
			return parsedReply, nil
		}),
	}

	require.NoError(t, w.Process(context.Background(), testJob))
	require.Less(t, promptLen, maxPromptChars+500)
}

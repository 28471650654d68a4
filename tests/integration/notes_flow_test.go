package integration_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peernotes/peernotes/internal/client"
	"github.com/peernotes/peernotes/internal/database"
	"github.com/peernotes/peernotes/internal/feed"
	"github.com/peernotes/peernotes/internal/moderation"
	"github.com/peernotes/peernotes/internal/notes"
	"github.com/peernotes/peernotes/internal/server"
	"go.uber.org/zap"
)

// keywordGenerator answers like the model would: harmful when the prompt
// contains its keyword.
type keywordGenerator struct {
	keyword string
}

func (g keywordGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, g.keyword) {
		return "```json\n{\"isHarmful\": true, \"reason\": \"harassment\"}\n```", nil
	}
	return `{"isHarmful": false}`, nil
}

func newTestServer(testContext *testing.T) *httptest.Server {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(testContext.TempDir(), "integration.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	testContext.Cleanup(func() { _ = sqlDB.Close() })

	handler, err := server.NewHTTPHandler(server.Dependencies{
		NotesService: notes.NewService(notes.ServiceConfig{Database: db, Logger: zap.NewNop()}),
		Moderator: moderation.NewGateway(moderation.GatewayConfig{
			Generator: keywordGenerator{keyword: "forbidden"},
		}),
		Logger: zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	httpServer := httptest.NewServer(handler)
	testContext.Cleanup(httpServer.Close)
	return httpServer
}

func newClientCache(testContext *testing.T, baseURL string) (*client.Client, *feed.Cache, *feed.Notifier) {
	testContext.Helper()
	api, err := client.New(client.Config{BaseURL: baseURL})
	if err != nil {
		testContext.Fatalf("failed to build client: %v", err)
	}
	notifier := feed.NewNotifier(feed.NotifierConfig{Schedule: func(_ time.Duration, _ func()) {}})
	cache, err := feed.NewCache(feed.CacheConfig{API: api, Notifier: notifier})
	if err != nil {
		testContext.Fatalf("failed to build cache: %v", err)
	}
	return api, cache, notifier
}

func lastToast(notifier *feed.Notifier) string {
	active := notifier.Active()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].Message
}

func TestNotesFlow(testContext *testing.T) {
	httpServer := newTestServer(testContext)
	ctx := context.Background()

	api, author, authorToasts := newClientCache(testContext, httpServer.URL)
	if err := author.Load(ctx); err != nil {
		testContext.Fatalf("failed to load empty feed: %v", err)
	}

	posted, err := author.Post(ctx, client.NewNote{Title: "Hashing", Subject: "CSE1", Content: "SHA-256 basics", Tags: []string{"Quiz"}})
	if err != nil {
		testContext.Fatalf("failed to post: %v", err)
	}
	if lastToast(authorToasts) != feed.MessageNotePosted {
		testContext.Fatalf("expected posted toast, got %q", lastToast(authorToasts))
	}
	if _, err := author.Post(ctx, client.NewNote{Title: "Scheduling", Subject: "CS333", Content: "Round robin"}); err != nil {
		testContext.Fatalf("failed to post second note: %v", err)
	}

	_, err = author.Post(ctx, client.NewNote{Title: "Rant", Subject: "CS333", Content: "forbidden words"})
	if err == nil {
		testContext.Fatalf("expected harmful note to be rejected")
	}
	if lastToast(authorToasts) != "Content rejected by moderation: harassment" {
		testContext.Fatalf("unexpected rejection toast %q", lastToast(authorToasts))
	}

	stats, err := api.Stats(ctx)
	if err != nil {
		testContext.Fatalf("failed to read stats: %v", err)
	}
	if stats.VisibleNotes != 2 || stats.AutoModerated != 1 {
		testContext.Fatalf("unexpected stats after rejection: %+v", stats)
	}

	_, reader, _ := newClientCache(testContext, httpServer.URL)
	if err := reader.Load(ctx); err != nil {
		testContext.Fatalf("failed to load feed: %v", err)
	}
	reader.SetFilter(feed.Filter{Subject: "CSE1", Tag: notes.FilterAll})
	visible := reader.Visible()
	if len(visible) != 1 || visible[0].ID != posted.ID {
		testContext.Fatalf("expected only the CSE1 note, got %+v", visible)
	}

	// Two independent clients like the same note at once.
	var waitGroup sync.WaitGroup
	for _, cache := range []*feed.Cache{author, reader} {
		waitGroup.Add(1)
		go func(cache *feed.Cache) {
			defer waitGroup.Done()
			if outcome := cache.Like(ctx, posted.ID); outcome != feed.OutcomeConfirmed {
				testContext.Errorf("expected confirmed like, got %s", outcome)
			}
		}(cache)
	}
	waitGroup.Wait()

	liked, err := api.GetNote(ctx, posted.ID)
	if err != nil {
		testContext.Fatalf("failed to reload note: %v", err)
	}
	if liked.Likes != 2 {
		testContext.Fatalf("expected 2 likes, got %d", liked.Likes)
	}

	for _, cache := range []*feed.Cache{author, reader} {
		if outcome := cache.Report(ctx, posted.ID); outcome != feed.OutcomeConfirmed {
			testContext.Fatalf("expected report to be confirmed, got %s", outcome)
		}
	}

	_, adminCache, adminToasts := newClientCache(testContext, httpServer.URL)
	if err := adminCache.Load(ctx); err != nil {
		testContext.Fatalf("failed to load admin feed: %v", err)
	}
	console, err := feed.NewAdminConsole(feed.AdminConfig{API: api, Cache: adminCache})
	if err != nil {
		testContext.Fatalf("failed to build console: %v", err)
	}
	if err := console.Load(ctx); err != nil {
		testContext.Fatalf("failed to load reports: %v", err)
	}
	reports := console.Reports()
	if len(reports) != 1 || reports[0].NoteID != posted.ID || reports[0].Title != "Hashing" {
		testContext.Fatalf("expected a single report snapshot, got %+v", reports)
	}

	if err := console.Delete(ctx, posted.ID); err != nil {
		testContext.Fatalf("failed to delete: %v", err)
	}
	if lastToast(adminToasts) != feed.MessageNoteRemoved {
		testContext.Fatalf("expected removal toast, got %q", lastToast(adminToasts))
	}
	if len(console.Reports()) != 0 {
		testContext.Fatalf("expected report view to be empty")
	}
	if _, ok := adminCache.Note(posted.ID); ok {
		testContext.Fatalf("expected deleted note to leave the admin feed")
	}
	if _, err := api.GetNote(ctx, posted.ID); !client.IsNotFound(err) {
		testContext.Fatalf("expected deleted note to be gone, got %v", err)
	}
	remaining, err := api.ListReports(ctx)
	if err != nil || len(remaining) != 0 {
		testContext.Fatalf("expected empty report log, got %+v %v", remaining, err)
	}

	stats, err = api.Stats(ctx)
	if err != nil {
		testContext.Fatalf("failed to read stats: %v", err)
	}
	if stats.VisibleNotes != 1 || stats.AutoModerated != 1 {
		testContext.Fatalf("unexpected final stats: %+v", stats)
	}
}

func TestLikeRollsBackWhenServerIsGone(testContext *testing.T) {
	httpServer := newTestServer(testContext)
	ctx := context.Background()

	_, cache, toasts := newClientCache(testContext, httpServer.URL)
	if _, err := cache.Post(ctx, client.NewNote{Title: "Queues", Subject: "CS373", Content: "FIFO"}); err != nil {
		testContext.Fatalf("failed to post: %v", err)
	}
	noteID := cache.Notes()[0].ID

	httpServer.Close()

	if outcome := cache.Like(ctx, noteID); outcome != feed.OutcomeRolledBack {
		testContext.Fatalf("expected rollback, got %s", outcome)
	}
	note, _ := cache.Note(noteID)
	if note.Likes != 0 || cache.IsLiked(noteID) {
		testContext.Fatalf("expected like to be undone, got %+v liked=%v", note, cache.IsLiked(noteID))
	}
	if lastToast(toasts) != feed.MessageLikeFailed {
		testContext.Fatalf("expected like failure toast, got %q", lastToast(toasts))
	}
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://notes.test"

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client, err := New(Config{BaseURL: testBaseURL + "/", HTTPClient: &http.Client{Transport: transport}})
	require.NoError(t, err)
	return client, transport
}

func TestListNotes(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/api/notes",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":1,"title":"A","subject":"CSE1","content":"x","tags":["Quiz"],"likes":5,"created_at":"2025-10-01T10:00:00Z"}]`))

	listed, err := client.ListNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, int64(1), listed[0].ID)
	assert.Equal(t, int64(5), listed[0].Likes)
	assert.Equal(t, []string{"Quiz"}, listed[0].Tags)
}

func TestCreateNoteSendsPayload(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/api/notes",
		func(request *http.Request) (*http.Response, error) {
			var payload map[string]any
			if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, `{"error":"bad"}`), nil
			}
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			assert.Equal(t, []any{}, payload["tags"])
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"id": 9, "title": payload["title"], "tags": []string{}})
		})

	created, err := client.CreateNote(context.Background(), NewNote{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	assert.Equal(t, "T", created.Title)
}

func TestCreateNoteRejectionMessage(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/api/notes",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"Content rejected by moderation","code":"content_rejected","reason":"profanity"}`))

	_, err := client.CreateNote(context.Background(), NewNote{Title: "T", Content: "C"})
	require.Error(t, err)
	assert.Equal(t, "Content rejected by moderation: profanity", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "content_rejected", apiErr.Code)
}

func TestNotFoundIsDetectable(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/api/notes/7/like",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"Note not found.","code":"not_found"}`))

	_, err := client.LikeNote(context.Background(), 7)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Note not found.", err.Error())
}

func TestReportAndDelete(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/api/notes/3/report",
		httpmock.NewStringResponder(http.StatusOK, `{"success":true}`))
	transport.RegisterResponder(http.MethodDelete, testBaseURL+"/api/notes/3",
		httpmock.NewStringResponder(http.StatusOK, `{"success":true}`))

	require.NoError(t, client.ReportNote(context.Background(), 3))
	require.NoError(t, client.DeleteNote(context.Background(), 3))
	assert.Equal(t, 1, transport.GetCallCountInfo()["POST "+testBaseURL+"/api/notes/3/report"])
	assert.Equal(t, 1, transport.GetCallCountInfo()["DELETE "+testBaseURL+"/api/notes/3"])
}

func TestModerateFailureReturnsFailOpenVerdict(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/api/moderate",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"isHarmful":false,"reason":"Moderation service failed."}`))

	verdict, err := client.Moderate(context.Background(), "t", "c")
	require.Error(t, err)
	assert.False(t, verdict.IsHarmful)
	assert.True(t, verdict.Failed)
	assert.Equal(t, "Moderation service failed.", verdict.Reason)
}

func TestStatsAndErrorsWithoutBody(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/api/stats",
		httpmock.NewStringResponder(http.StatusOK, `{"visibleNotes":3,"adminRemoved":1,"autoModerated":2}`))
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/api/reported-notes",
		httpmock.NewStringResponder(http.StatusBadGateway, ""))

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.VisibleNotes)
	assert.Equal(t, int64(2), stats.AutoModerated)

	_, err = client.ListReports(context.Background())
	assert.EqualError(t, err, "request failed with status 502")
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://notes"})
	assert.Error(t, err)

	client, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL.String())
}

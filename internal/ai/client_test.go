package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	c, err := New("mock", Options{}, nil)
	require.NoError(t, err)
	require.IsType(t, &Mock{}, c)

	_, err = New("telegraph", Options{}, nil)
	require.Error(t, err)
}

func TestMockDeterministic(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	a, err := m.Generate(ctx, Request{Kind: KindWriter})
	require.NoError(t, err)
	b, err := m.Generate(ctx, Request{Kind: KindWriter})
	require.NoError(t, err)
	require.Equal(t, a, b)

	var chunks []string
	streamed, err := m.GenerateStream(ctx, Request{Kind: KindWriter}, func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	require.Equal(t, a, streamed)
	require.Equal(t, streamed, strings.Join(chunks, ""))

	checker, err := m.Generate(ctx, Request{Kind: KindChecker})
	require.NoError(t, err)
	res, err := ParseChecker(checker)
	require.NoError(t, err)
	require.True(t, res.Safety.OK)

	require.Len(t, m.Calls(), 4)
}

func TestMockScripted(t *testing.T) {
	m := NewMock()
	m.WriterFunc = func(Request) (string, error) { return "Emma smiles.", nil }
	m.CheckerFunc = func(Request) (string, error) {
		return `{"meters":{"emma":{"trust":"+2"}}}`, nil
	}

	text, err := m.Generate(context.Background(), Request{Kind: KindWriter})
	require.NoError(t, err)
	require.Equal(t, "Emma smiles.", text)

	raw, err := m.Generate(context.Background(), Request{Kind: KindChecker})
	require.NoError(t, err)
	res, err := ParseChecker(raw)
	require.NoError(t, err)
	require.Equal(t, "+2", res.Meters["emma"]["trust"])
}

func TestAnthropicGenerate(t *testing.T) {
	var gotBody anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "sekrit", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"Hello"},{"type":"text","text":" world"}],"usage":{"input_tokens":10,"output_tokens":2}}`))
	}))
	defer srv.Close()

	c := NewAnthropic(Options{APIKey: "sekrit", BaseURL: srv.URL, WriterModel: "w-model", CheckerModel: "c-model", MaxTokens: 256}, nil)
	text, err := c.Generate(context.Background(), Request{Kind: KindWriter, System: "sys", User: "hi"})
	require.NoError(t, err)
	require.Equal(t, "Hello world", text)
	require.Equal(t, "w-model", gotBody.Model)
	require.Equal(t, 256, gotBody.MaxTokens)
	require.Equal(t, "sys", gotBody.System)

	_, err = c.Generate(context.Background(), Request{Kind: KindChecker, User: "hi"})
	require.NoError(t, err)
	require.Equal(t, "c-model", gotBody.Model)
	require.Zero(t, gotBody.Temperature, "checker runs cold")
}

func TestAnthropicGenerateNoKey(t *testing.T) {
	c := NewAnthropic(Options{}, nil)
	_, err := c.Generate(context.Background(), Request{Kind: KindWriter})
	require.Error(t, err)
}

func TestAnthropicGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`event: message_start`,
			`data: {"type":"message_start"}`,
			``,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Emma "}}`,
			``,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"smiles."}}`,
			``,
			`data: {"type":"message_stop"}`,
		} {
			w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	c := NewAnthropic(Options{APIKey: "k", BaseURL: srv.URL, WriterModel: "m"}, nil)
	var chunks []string
	text, err := c.GenerateStream(context.Background(), Request{Kind: KindWriter}, func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	require.Equal(t, "Emma smiles.", text)
	require.Equal(t, []string{"Emma ", "smiles."}, chunks)
}

func TestOpenAIGenerate(t *testing.T) {
	var gotBody openaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"safety\":{\"ok\":true}}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(Options{APIKey: "sekrit", BaseURL: srv.URL, CheckerModel: "gpt-check"}, nil)
	text, err := c.Generate(context.Background(), Request{Kind: KindChecker, User: "state", JSONMode: true})
	require.NoError(t, err)
	require.Equal(t, `{"safety":{"ok":true}}`, text)
	require.Equal(t, "gpt-check", gotBody.Model)
	require.NotNil(t, gotBody.ResponseFormat)
	require.Equal(t, "json_object", gotBody.ResponseFormat.Type)
}

func TestOpenAIGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`data: {"choices":[{"delta":{"content":"The "}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"river."}}]}`,
			``,
			`data: [DONE]`,
		} {
			w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	c := NewOpenAI(Options{BaseURL: srv.URL, WriterModel: "m"}, nil)
	var chunks []string
	text, err := c.GenerateStream(context.Background(), Request{Kind: KindWriter}, func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	require.Equal(t, "The river.", text)
	require.Equal(t, []string{"The ", "river."}, chunks)
}

func TestAnthropicRetriesOn429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropic(Options{APIKey: "k", BaseURL: srv.URL, WriterModel: "m"}, nil)
	text, err := c.Generate(context.Background(), Request{Kind: KindWriter})
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, 2, attempts)
}

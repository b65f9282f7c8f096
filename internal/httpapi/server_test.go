package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"storyd/internal/engine"
	"storyd/internal/infer"
	"storyd/pkg/types"
)

// fakeEngine scripts one response per call kind.
type fakeEngine struct {
	loadRes    engine.LoadResult
	loadErr    error
	unloadErr  error
	genText    string
	genErr     error
	suggestion string
	suggestErr error
	lastGen    types.GenerateRequest
}

func (f *fakeEngine) Load(_ context.Context, _, _, _, _ string, _ int) (engine.LoadResult, error) {
	return f.loadRes, f.loadErr
}
func (f *fakeEngine) Unload(string) error { return f.unloadErr }
func (f *fakeEngine) Generate(_ context.Context, req types.GenerateRequest) (string, error) {
	f.lastGen = req
	return f.genText, f.genErr
}
func (f *fakeEngine) Status() []engine.SlotStatus { return []engine.SlotStatus{} }
func (f *fakeEngine) SuggestNextScene(context.Context, types.SuggestionRequest) (string, error) {
	return f.suggestion, f.suggestErr
}
func (f *fakeEngine) SuggestCharacterIdea(context.Context, types.CharacterIdeaRequest) (string, error) {
	return f.suggestion, f.suggestErr
}
func (f *fakeEngine) SuggestDialogueSparker(context.Context, types.DialogueSparkerRequest) (string, error) {
	return f.suggestion, f.suggestErr
}
func (f *fakeEngine) SuggestSettingDetail(context.Context, types.SettingDetailRequest) (string, error) {
	return f.suggestion, f.suggestErr
}

type fakeCatalog struct {
	models []types.ModelFile
	avail  infer.Availability
	err    error
}

func (f *fakeCatalog) Discover() ([]types.ModelFile, error) { return f.models, f.err }
func (f *fakeCatalog) Availability() infer.Availability     { return f.avail }

type memCharacters map[uuid.UUID]types.Character

func (m memCharacters) Create(in types.CharacterCreate) (types.Character, error) {
	c := types.Character{ID: uuid.New(), Name: in.Name, Description: in.Description, Status: in.Status}
	if c.Status == "" {
		c.Status = types.CharacterStatusDefault
	}
	m[c.ID] = c
	return c, nil
}
func (m memCharacters) Character(id uuid.UUID) (types.Character, bool) {
	c, ok := m[id]
	return c, ok
}
func (m memCharacters) List() []types.Character {
	out := make([]types.Character, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
func (m memCharacters) Update(id uuid.UUID, upd types.CharacterUpdate) (types.Character, bool, error) {
	c, ok := m[id]
	if !ok {
		return types.Character{}, false, nil
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	m[id] = c
	return c, true, nil
}
func (m memCharacters) Delete(id uuid.UUID) (bool, error) {
	if _, ok := m[id]; !ok {
		return false, nil
	}
	delete(m, id)
	return true, nil
}

type memPlotPoints map[uuid.UUID]types.PlotPoint

func (m memPlotPoints) Create(in types.PlotPointCreate) (types.PlotPoint, error) {
	p := types.PlotPoint{ID: uuid.New(), Title: in.Title, Description: in.Description, Status: in.Status, Type: in.Type}
	if p.Status == "" {
		p.Status = types.PlotStatusDefault
	}
	m[p.ID] = p
	return p, nil
}
func (m memPlotPoints) PlotPoint(id uuid.UUID) (types.PlotPoint, bool) {
	p, ok := m[id]
	return p, ok
}
func (m memPlotPoints) List() []types.PlotPoint {
	out := make([]types.PlotPoint, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}
func (m memPlotPoints) Update(id uuid.UUID, upd types.PlotPointUpdate) (types.PlotPoint, bool, error) {
	p, ok := m[id]
	if !ok {
		return types.PlotPoint{}, false, nil
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	m[id] = p
	return p, true, nil
}
func (m memPlotPoints) Delete(id uuid.UUID) (bool, error) {
	if _, ok := m[id]; !ok {
		return false, nil
	}
	delete(m, id)
	return true, nil
}

type memStory struct{ text string }

func (m *memStory) Text() string           { return m.text }
func (m *memStory) Save(text string) error { m.text = text; return nil }

func newTestServer(t *testing.T, eng *fakeEngine) (http.Handler, *memStory) {
	t.Helper()
	story := &memStory{}
	mux := NewMux(Deps{
		Engine: eng,
		Catalog: &fakeCatalog{
			models: []types.ModelFile{{Filename: "tiny.gguf", CompatibleBackends: []string{"gguf", "hf"}}},
			avail:  infer.Availability{GGUF: true},
		},
		Characters: memCharacters{},
		PlotPoints: memPlotPoints{},
		Story:      story,
	})
	return mux, story
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})
	rr := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestModelsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})
	rr := doJSON(t, h, http.MethodGet, "/api/story/models", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].Filename != "tiny.gguf" {
		t.Fatalf("unexpected models: %+v", resp.Models)
	}
	if resp.HFAvailable || !resp.GGUFAvailable {
		t.Fatalf("unexpected availability: %+v", resp)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	eng := &fakeEngine{genText: "and then it rained"}
	h, _ := newTestServer(t, eng)

	rr := doJSON(t, h, http.MethodPost, "/api/story/generate", types.GenerateRequest{Prompt: "The sky darkened.", Slot: "primary"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.GeneratedText != "and then it rained" {
		t.Fatalf("got %q", resp.GeneratedText)
	}
	if eng.lastGen.Prompt != "The sky darkened." {
		t.Fatalf("request not forwarded: %+v", eng.lastGen)
	}
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	// Missing content type.
	req := httptest.NewRequest(http.MethodPost, "/api/story/generate", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rr.Code)
	}

	// Malformed body.
	req = httptest.NewRequest(http.MethodPost, "/api/story/generate", bytes.NewBufferString(`{nope`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}

	// Empty prompt.
	rr = doJSON(t, h, http.MethodPost, "/api/story/generate", types.GenerateRequest{Prompt: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"config", infer.ErrConfig("unknown slot"), http.StatusBadRequest},
		{"unknown backend", infer.ErrUnknownBackend("onnx"), http.StatusBadRequest},
		{"not found", infer.ErrModelNotFound("m"), http.StatusNotFound},
		{"not ready", infer.ErrNotReady("primary"), http.StatusConflict},
		{"capability", infer.ErrCapability("no gpu"), http.StatusServiceUnavailable},
		{"runtime", infer.ErrRuntime("gguf", context.DeadlineExceeded), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeEngine{genErr: tc.err})
			rr := doJSON(t, h, http.MethodPost, "/api/story/generate", types.GenerateRequest{Prompt: "p"})
			if rr.Code != tc.want {
				t.Fatalf("status %d want %d: %s", rr.Code, tc.want, rr.Body.String())
			}
			var resp types.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tc.want || resp.Error == "" {
				t.Fatalf("payload %+v", resp)
			}
		})
	}
}

func TestLoadModelEndpoint(t *testing.T) {
	eng := &fakeEngine{loadRes: engine.LoadResult{Message: "loaded", Warning: "device \"cuda\" not available, using cpu"}}
	h, _ := newTestServer(t, eng)
	rr := doJSON(t, h, http.MethodPost, "/api/story/load_model", types.LoadModelRequest{ModelID: "tiny.gguf", Backend: "gguf"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp types.LoadModelResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "loaded" || resp.Warning == "" {
		t.Fatalf("payload %+v", resp)
	}

	h, _ = newTestServer(t, &fakeEngine{loadErr: infer.ErrModelNotFound("tiny.gguf")})
	rr = doJSON(t, h, http.MethodPost, "/api/story/load_model", types.LoadModelRequest{ModelID: "tiny.gguf", Backend: "gguf"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestUnloadModelEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})
	rr := doJSON(t, h, http.MethodPost, "/api/story/unload_model", types.UnloadModelRequest{Slot: "all"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSuggestionEndpoints(t *testing.T) {
	eng := &fakeEngine{suggestion: "a twist"}
	h, _ := newTestServer(t, eng)
	for _, path := range []string{
		"/api/writer-block/suggest-next-scene",
		"/api/writer-block/suggest-character-idea",
		"/api/writer-block/suggest-dialogue-sparker",
		"/api/writer-block/suggest-setting-detail",
	} {
		rr := doJSON(t, h, http.MethodPost, path, map[string]string{"current_story_context": "ctx"})
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", path, rr.Code, rr.Body.String())
		}
		var resp types.SuggestionResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if resp.Suggestion != "a twist" {
			t.Fatalf("%s: got %q", path, resp.Suggestion)
		}
	}

	// An empty auxiliary slot surfaces as a conflict.
	h, _ = newTestServer(t, &fakeEngine{suggestErr: infer.ErrNotReady("auxiliary")})
	rr := doJSON(t, h, http.MethodPost, "/api/writer-block/suggest-next-scene", map[string]string{"current_story_context": "ctx"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestStoryTextRoundTrip(t *testing.T) {
	h, story := newTestServer(t, &fakeEngine{})

	rr := doJSON(t, h, http.MethodPut, "/api/story/main_text", types.StoryTextRequest{Text: "Chapter one."})
	if rr.Code != http.StatusOK {
		t.Fatalf("put status %d: %s", rr.Code, rr.Body.String())
	}
	if story.text != "Chapter one." {
		t.Fatalf("story not saved: %q", story.text)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/story/main_text", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status %d", rr.Code)
	}
	var resp types.StoryTextResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Text != "Chapter one." {
		t.Fatalf("got %q", resp.Text)
	}
}

func TestCharacterCRUD(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	rr := doJSON(t, h, http.MethodPost, "/api/characters/", types.CharacterCreate{Name: "Mira"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rr.Code, rr.Body.String())
	}
	var created types.Character
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != types.CharacterStatusDefault {
		t.Fatalf("created %+v", created)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/characters/"+created.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status %d", rr.Code)
	}

	status := "Missing"
	rr = doJSON(t, h, http.MethodPut, "/api/characters/"+created.ID.String(), types.CharacterUpdate{Status: &status})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/characters/"+created.ID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/characters/"+created.ID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/characters/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/characters/", types.CharacterCreate{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty name status %d", rr.Code)
	}
}

func TestPlotPointCRUD(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	rr := doJSON(t, h, http.MethodPost, "/api/plot-points/", types.PlotPointCreate{Title: "The Heist"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rr.Code, rr.Body.String())
	}
	var created types.PlotPoint
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != types.PlotStatusDefault {
		t.Fatalf("created %+v", created)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/plot-points/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d", rr.Code)
	}
	var list []types.PlotPoint
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list %+v", list)
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/plot-points/"+created.ID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodDelete, "/api/plot-points/"+created.ID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rr.Code)
	}
}

package storylinecmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	storylinecmder "github.com/papercomputeco/storyline/cmd/storyline"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/storage/sqlite"
	"github.com/papercomputeco/storyline/pkg/story"
)

// fakeOllama answers /api/chat by looking at the requested response schema
// and /api/embed with a vector that only tells Paris from everything else.
func fakeOllama() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/embed" {
			var req struct {
				Input string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			vec := []float32{0, 1, 0.1}
			if strings.Contains(strings.ToLower(req.Input), "paris") {
				vec = []float32{1, 0, 0.1}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vec}})
			return
		}

		var req struct {
			Format map[string]any `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		props, _ := req.Format["properties"].(map[string]any)

		var content any
		switch {
		case props["is_memory_worthy"] != nil:
			content = map[string]any{
				"is_memory_worthy": true,
				"reasoning":        "A concrete shared moment",
				"memory_type":      "event",
				"confidence":       0.9,
				"key_details":      []string{"arrival"},
			}
		case props["people"] != nil:
			content = map[string]any{
				"people": []any{},
				"places": []any{map[string]any{"name": "Paris", "type": "city", "confidence": 0.9}},
				"things": []any{},
			}
		case props["narrative"] != nil:
			content = map[string]any{
				"narrative":   "They arrived in Paris as the city woke.",
				"title":       "Dawn in Paris",
				"summary":     "An early arrival.",
				"themes":      []string{"travel"},
				"key_moments": []string{"Landing at dawn"},
				"metadata": map[string]any{
					"total_memories":   1,
					"time_span_days":   0,
					"primary_location": "Paris",
				},
			}
		default:
			http.Error(w, "unexpected schema", http.StatusBadRequest)
			return
		}

		payload, _ := json.Marshal(content)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": string(payload)},
			"done":    true,
		})
	}))
}

var _ = Describe("NewStorylineCmd", func() {
	It("registers every subcommand", func() {
		cmd := storylinecmder.NewStorylineCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"serve", "story", "contribute", "analyze", "theme", "synthesize",
			"reanalyze", "status", "show", "ingest", "search", "watch", "config", "version",
		))
	})

	It("has global debug and config-dir flags", func() {
		cmd := storylinecmder.NewStorylineCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("Storyline commands", func() {
	var (
		tmpDir string
		dbPath string
		server *httptest.Server
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "storyline-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)

		server = fakeOllama()
		DeferCleanup(server.Close)

		dbPath = filepath.Join(tmpDir, "storyline.db")
		GinkgoT().Setenv("HOME", tmpDir)
		GinkgoT().Setenv("STORYLINE_STORAGE_SQLITE_PATH", dbPath)
		GinkgoT().Setenv("STORYLINE_LLM_PROVIDER", "ollama")
		GinkgoT().Setenv("STORYLINE_LLM_BASE_URL", server.URL)
		GinkgoT().Setenv("STORYLINE_LLM_MAX_RETRIES", "0")
		GinkgoT().Setenv("STORYLINE_LOG_FORMAT", "text")
		GinkgoT().Setenv("UNSPLASH_ACCESS_KEY", "")
		GinkgoT().Setenv("KAFKA_BROKERS", "")

		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		out.Reset()
		cmd := storylinecmder.NewStorylineCmd()
		cmd.SetOut(out)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	// stories opens the database the commands wrote to.
	stories := func() []*story.Story {
		store, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		list, err := store.ListStories(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return list
	}

	createStory := func() string {
		Expect(execute("story", "create", "--title", "Summer in Paris", "--start", "2024-06-01")).To(Succeed())
		list := stories()
		Expect(list).To(HaveLen(1))
		return list[0].ID
	}

	It("creates and lists stories", func() {
		id := createStory()
		Expect(out.String()).To(ContainSubstring(id))

		Expect(execute("story", "list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Summer in Paris"))
	})

	It("rejects a story without a title", func() {
		Expect(execute("story", "create", "--title", "  ")).NotTo(Succeed())
	})

	It("rejects a malformed start date", func() {
		Expect(execute("story", "create", "--title", "T", "--start", "June")).NotTo(Succeed())
	})

	It("runs a contribution through every stage", func() {
		id := createStory()

		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("worthy (event)"))

		Expect(execute("status", id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Paris"))
		Expect(out.String()).To(ContainSubstring(story.DefaultImageURL))
		Expect(out.String()).To(ContainSubstring("Ana"))

		Expect(execute("show", id, "--raw")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("# Dawn in Paris"))
		Expect(out.String()).To(ContainSubstring("They arrived in Paris as the city woke."))
	})

	It("reads the body from stdin", func() {
		id := createStory()

		cmd := storylinecmder.NewStorylineCmd()
		cmd.SetOut(out)
		cmd.SetErr(GinkgoWriter)
		cmd.SetIn(bytes.NewBufferString("Dinner by the Seine.\n"))
		cmd.SetArgs([]string{"contribute", id, "--author", "Ben", "--body", "-"})
		Expect(cmd.Execute()).To(Succeed())

		store, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		list, err := store.ListContributions(context.Background(), id, storage.ContributionFilter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Body).To(Equal("Dinner by the Seine."))
	})

	It("keeps earlier narratives as revisions", func() {
		id := createStory()
		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())

		Expect(execute("synthesize", id, "--raw")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("# Dawn in Paris"))

		Expect(execute("show", id, "--revisions")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("#1"))
	})

	It("refreshes and shows the theme", func() {
		id := createStory()
		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())

		Expect(execute("theme", id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Paris (place)"))

		Expect(execute("theme", id, "--show")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(story.DefaultImageURL))
	})

	It("searches contributions once an embedder is configured", func() {
		GinkgoT().Setenv("STORYLINE_SEARCH_EMBEDDER", "ollama")
		GinkgoT().Setenv("STORYLINE_SEARCH_BASE_URL", server.URL)
		GinkgoT().Setenv("STORYLINE_SEARCH_DIMENSIONS", "3")
		GinkgoT().Setenv("STORYLINE_SEARCH_VECTOR_PATH", filepath.Join(tmpDir, "vectors.db"))

		id := createStory()
		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())
		Expect(execute("contribute", id, "--author", "Ben", "--body", "The ferry was late again.")).To(Succeed())

		Expect(execute("search", id, "paris", "mornings", "-n", "1")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("We landed in Paris at dawn."))
		Expect(out.String()).NotTo(ContainSubstring("ferry"))
	})

	It("fails to search without an embedder", func() {
		id := createStory()
		Expect(execute("search", id, "paris")).NotTo(Succeed())
	})

	It("analyzes a whole story", func() {
		id := createStory()
		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())

		Expect(execute("analyze", id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Worthy"))
	})

	It("reanalyzes a contribution", func() {
		id := createStory()
		Expect(execute("contribute", id, "--author", "Ana", "--body", "We landed in Paris at dawn.")).To(Succeed())

		store, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		list, err := store.ListContributions(context.Background(), id, storage.ContributionFilter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())
		Expect(list).To(HaveLen(1))

		Expect(execute("reanalyze", list[0].ID)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("worthy"))

		Expect(execute("reanalyze", "--pending", id)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("0"))
	})

	It("ingests contributions from a directory", func() {
		id := createStory()

		inbox := filepath.Join(tmpDir, "inbox")
		Expect(os.MkdirAll(inbox, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(inbox, "a.json"), []byte(`[
			{"author_name": "Ana", "body": "We landed in Paris at dawn.", "occurred_at": "2024-06-01T06:10:00Z"},
			{"author_name": "Ben", "body": "Dinner by the Seine.", "occurred_at": "2024-06-01T20:00:00Z"}
		]`), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("ignored"), 0o600)).To(Succeed())

		Expect(execute("ingest", id, inbox)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("a.json"))
		Expect(out.String()).To(ContainSubstring("(2 of 2 contributions)"))
		Expect(out.String()).NotTo(ContainSubstring("notes.txt"))
	})

	It("fails for an unknown story", func() {
		Expect(execute("status", "missing")).To(MatchError(storage.IsNotFound, "IsNotFound"))
	})

	It("prints the version", func() {
		Expect(execute("version")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("dev"))
	})
})

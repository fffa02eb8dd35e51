package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/storyline/cmd/storyline/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "storyline-config-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .storyline dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".storyline"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)

		GinkgoT().Setenv("HOME", tmpDir)
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(execute("set", "llm.provider", "gemini")).To(Succeed())

			// Verify the config file was created
			data, err := os.ReadFile(filepath.Join(tmpDir, ".storyline", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`provider = "gemini"`))
		})

		It("rejects unknown keys", func() {
			Expect(execute("set", "invalid_key", "value")).NotTo(Succeed())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "llm.provider")).NotTo(Succeed())
		})

		It("rejects zero arguments", func() {
			Expect(execute("set")).NotTo(Succeed())
		})

		It("rejects invalid int values", func() {
			Expect(execute("set", "pipeline.workers", "not-a-number")).NotTo(Succeed())
		})

		It("rejects unknown storage drivers", func() {
			Expect(execute("set", "storage.driver", "mongodb")).NotTo(Succeed())
		})

		It("masks credentials in its output", func() {
			Expect(execute("set", "llm.api_key", "sk-secret-1234")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("sk-secret"))
			Expect(out.String()).To(ContainSubstring("1234"))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "llm.provider", "gemini")).To(Succeed())
			out.Reset()

			Expect(execute("get", "llm.provider")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("gemini"))
		})

		It("reports the default for an unset key", func() {
			Expect(execute("get", "pipeline.max_attempts")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("3"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "invalid_key")).NotTo(Succeed())
		})

		It("requires exactly one argument", func() {
			Expect(execute("get")).NotTo(Succeed())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("storage.driver"))
			Expect(out.String()).To(ContainSubstring("log.format"))
		})

		It("shows values that were set", func() {
			Expect(execute("set", "events.topic", "memories")).To(Succeed())
			out.Reset()

			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"memories"`))
		})

		It("masks credentials", func() {
			Expect(execute("set", "images.unsplash_access_key", "abcdefgh9876")).To(Succeed())
			out.Reset()

			Expect(execute("list")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("abcdefgh"))
			Expect(out.String()).To(ContainSubstring("9876"))
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).NotTo(Succeed())
		})
	})
})

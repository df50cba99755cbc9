package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/tomes/cmd/tomes/init"
	"github.com/papercomputeco/tomes/pkg/config"
	"github.com/papercomputeco/tomes/pkg/dotdir"
)

var _ = Describe("init command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })

		out = &bytes.Buffer{}
	})

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates the local .tomes directory", func() {
		Expect(run()).To(Succeed())
		Expect(filepath.Join(tmpDir, dotdir.DirName)).To(BeADirectory())
		Expect(out.String()).To(ContainSubstring("Initialized .tomes directory"))
	})

	It("reports an existing directory", func() {
		Expect(run()).To(Succeed())
		out.Reset()
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	It("writes the preset config", func() {
		Expect(run("--preset", "local")).To(Succeed())

		cfger, err := config.NewConfiger(filepath.Join(tmpDir, dotdir.DirName))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Provider).To(Equal("inmemory"))
		Expect(cfg.Embedding.Provider).To(Equal("hash"))
	})

	It("does not overwrite an existing config", func() {
		Expect(run("--preset", "openai")).To(Succeed())
		Expect(run("--preset", "local")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("preset not applied"))

		cfger, err := config.NewConfiger(filepath.Join(tmpDir, dotdir.DirName))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Provider).To(Equal("openai"))
	})

	It("rejects unknown presets before creating anything", func() {
		err := run("--preset", "bedrock")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		Expect(filepath.Join(tmpDir, dotdir.DirName)).NotTo(BeADirectory())
	})
})

package stack

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		tmpDir  string
		origCwd string
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("GLEANER_DB", "")
		GinkgoT().Setenv("XDG_DATA_HOME", "")

		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("returns the override untouched", func() {
		path, err := ResolveSQLitePath("/tmp/explicit.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/explicit.db"))
	})

	It("prefers GLEANER_DB when set", func() {
		GinkgoT().Setenv("GLEANER_DB", "/tmp/custom.db")

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("finds an existing database in the local .gleaner directory", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".gleaner"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tmpDir, ".gleaner", "gleaner.db"), nil, 0o600)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(".gleaner", "gleaner.db")))
	})

	It("finds a database under XDG_DATA_HOME", func() {
		xdg := filepath.Join(tmpDir, "xdg")
		Expect(os.MkdirAll(filepath.Join(xdg, "gleaner"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(xdg, "gleaner", "gleaner.db"), nil, 0o600)).To(Succeed())
		GinkgoT().Setenv("XDG_DATA_HOME", xdg)

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(xdg, "gleaner", "gleaner.db")))
	})

	It("falls back to the config directory", func() {
		configDir := filepath.Join(tmpDir, "cfg")

		path, err := ResolveSQLitePath("", configDir)
		Expect(err).NotTo(HaveOccurred())

		abs, err := filepath.Abs(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(abs, "gleaner.db")))
		Expect(abs).To(BeADirectory())
	})
})

var _ = Describe("ResolveVectorPath", func() {
	It("returns the override untouched", func() {
		path, err := ResolveVectorPath("/tmp/v.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/v.db"))
	})

	It("places vectors.db in the config directory", func() {
		configDir := GinkgoT().TempDir()

		path, err := ResolveVectorPath("", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(path)).To(Equal("vectors.db"))
	})
})

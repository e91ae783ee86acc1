package gleanercmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	gleanercmder "github.com/papercomputeco/gleaner/cmd/gleaner"
)

var _ = Describe("NewGleanerCmd", func() {
	It("registers every subcommand", func() {
		cmd := gleanercmder.NewGleanerCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("init", "config", "serve", "ingest", "watch", "version"))
	})

	It("has the global flags", func() {
		cmd := gleanercmder.NewGleanerCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("passes --config-dir through to subcommands", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), "custom")

		cmd := gleanercmder.NewGleanerCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config-dir", configDir, "config", "set", "api.listen", ":9100"})
		Expect(cmd.Execute()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(configDir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`listen = ":9100"`))
	})
})

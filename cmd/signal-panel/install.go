package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/kardianos/osext"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/signal-panel/internal/config"
)

// defaultInstallConfig is where install puts the board file when --config is not given.
const defaultInstallConfig = "/etc/signal-panel.toml"

const serviceFile = `[Unit]
Description=Vehicle signal panel controller
After=network.target

[Service]
ExecStart={{.BinPath}} run -c {{.ConfigFile}}
Restart=always
RestartSec=2

[Install]
WantedBy=multi-user.target
`

var serviceTmpl = template.Must(template.New("service").Parse(serviceFile))

func runInstall(cmd *cobra.Command, args []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = defaultInstallConfig
	}
	bin, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return install(installPrefix, bin, cfgPath, installReset)
}

// install copies bin to <prefix>/usr/bin, writes the systemd unit and, unless
// one exists and reset is false, the default board file.
func install(prefix, bin, cfgPath string, reset bool) error {
	if prefix == "" {
		prefix = "/"
	}

	binPath := "/usr/bin/signal-panel"
	if err := copyFile(bin, filepath.Join(prefix, binPath), 0755); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}

	unitPath := filepath.Join(prefix, "usr/lib/systemd/system/signal-panel.service")
	if err := writeFile(unitPath, 0644, func(w io.Writer) error {
		return serviceTmpl.Execute(w, struct{ BinPath, ConfigFile string }{binPath, cfgPath})
	}); err != nil {
		return fmt.Errorf("install unit: %w", err)
	}

	dstPath := filepath.Join(prefix, cfgPath)
	if _, err := os.Stat(dstPath); err == nil && !reset {
		log.Printf("keeping existing board file %s", dstPath)
		return nil
	}
	if err := writeFile(dstPath, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, config.DefaultFile)
		return err
	}); err != nil {
		return fmt.Errorf("install board file: %w", err)
	}
	log.Printf("installed to %s", prefix)
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeFile(dst, perm, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeFile(path string, perm os.FileMode, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

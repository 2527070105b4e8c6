package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/grocer/internal/cli"
)

func Test_Print_Config_Defaults(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "data_dir="+c.DataDir())
	cli.AssertContains(t, stdout, "backend=file")
	cli.AssertContains(t, stdout, "owner=guest")
	cli.AssertContains(t, stdout, "service_timeout=8s")
	cli.AssertContains(t, stdout, "log_level=warn")
	cli.AssertContains(t, stdout, "(defaults only)")
	cli.AssertNotContains(t, stdout, "service_url=")

	if _, err := os.Stat(c.DataDir()); !os.IsNotExist(err) {
		t.Errorf("print-config should not create the data dir, stat err=%v", err)
	}
}

func Test_Print_Config_Precedence(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(`{
		// project settings
		"owner": "sam",
		"backend": "sqlite",
		"service_url": "http://localhost:9",
		"timezone": "UTC",
	}`)

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "owner=sam")
	cli.AssertContains(t, stdout, "backend=sqlite")
	cli.AssertContains(t, stdout, "service_url=http://localhost:9")
	cli.AssertContains(t, stdout, "timezone=UTC")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".grocer.json"))

	c.Env["GROCER_OWNER"] = "alex"
	stdout = c.MustRun("print-config")
	cli.AssertContains(t, stdout, "owner=alex")

	stdout = c.MustRun("--owner", "kim", "--service-url", "", "print-config")
	cli.AssertContains(t, stdout, "owner=kim")
	cli.AssertNotContains(t, stdout, "service_url=")
}

func Test_Print_Config_Global_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	global := filepath.Join(c.Env["HOME"], ".config", "grocer", "config.json")
	if err := os.MkdirAll(filepath.Dir(global), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(global, []byte(`{"log_level": "debug"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "log_level=debug")
	cli.AssertContains(t, stdout, "global_config="+global)
}

func Test_Invalid_Config_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(`{"backend": "postgres"}`)

	stderr := c.MustFail("print-config")
	cli.AssertContains(t, stderr, "backend must be file, sqlite or memory")

	stderr = c.MustFail("-c", "missing.json", "print-config")
	cli.AssertContains(t, stderr, "config file not found")
}

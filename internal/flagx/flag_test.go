package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-d", "-r"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate value form",
			args: []string{"-d", "ledger.db", "-x", "ignored"},
			want: []string{"-d", "ledger.db"},
		},
		{
			name: "equals form",
			args: []string{"-r=postgres://localhost/ledger", "positional"},
			want: []string{"-r=postgres://localhost/ledger"},
		},
		{
			name: "order preserved across mixed forms",
			args: []string{"-r=dsn", "-d", "ledger.db"},
			want: []string{"-r=dsn", "-d", "ledger.db"},
		},
		{
			name: "flag followed by another flag keeps no value",
			args: []string{"-d", "-r", "dsn"},
			want: []string{"-d", "-r", "dsn"},
		},
		{
			name: "trailing flag without value",
			args: []string{"-d"},
			want: []string{"-d"},
		},
		{
			name: "nothing allowed",
			args: []string{"-x", "1", "-y=2", "pos"},
			want: []string{},
		},
		{
			name: "repeated flag kept both times",
			args: []string{"-d", "one.db", "-d", "two.db"},
			want: []string{"-d", "one.db", "-d", "two.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"lk", "-c", "/etc/lk/conf.json"}
		assert.Equal(t, "/etc/lk/conf.json", ConfigFilePath())
	})

	t.Run("long flag", func(t *testing.T) {
		os.Args = []string{"lk", "-config", "conf.json"}
		assert.Equal(t, "conf.json", ConfigFilePath())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"lk", "-d", "ledger.db"}
		assert.Empty(t, ConfigFilePath())
	})
}

package svchost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallArgs(t *testing.T) {
	tests := []struct {
		name   string
		config ServiceConfiguration
		want   []string
	}{
		{
			name:   "executable only",
			config: ServiceConfiguration{Executable: "ping 127.0.0.1", ServiceName: "ignored", Account: AccountUser},
			want:   []string{"-exe", "ping 127.0.0.1"},
		},
		{
			name:   "with log",
			config: ServiceConfiguration{Executable: "ping 127.0.0.1", LogPath: "console"},
			want:   []string{"-exe", "ping 127.0.0.1", "-log", "console"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InstallArgs(&tt.config))
		})
	}
}

func TestBinPath(t *testing.T) {
	tests := []struct {
		name   string
		binary string
		config ServiceConfiguration
		want   string
	}{
		{
			name:   "windows paths",
			binary: `C:\svc\svchost.exe`,
			config: ServiceConfiguration{Executable: `ping 127.0.0.1 -n 5`, LogPath: `C:\logs\out.log`},
			want:   `C:\svc\svchost.exe -exe "ping 127.0.0.1 -n 5" -log "C:\logs\out.log"`,
		},
		{
			name:   "binary with spaces",
			binary: `C:\Program Files\svchost.exe`,
			config: ServiceConfiguration{Executable: "app"},
			want:   `"C:\Program Files\svchost.exe" -exe "app"`,
		},
		{
			name:   "embedded quotes",
			binary: "/usr/bin/svchost",
			config: ServiceConfiguration{Executable: `app "two words"`},
			want:   `/usr/bin/svchost -exe "app \"two words\""`,
		},
		{
			name:   "trailing backslash",
			binary: "svchost",
			config: ServiceConfiguration{Executable: "app", LogPath: `C:\logs\`},
			want:   `svchost -exe "app" -log "C:\logs\\"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BinPath(tt.binary, &tt.config))
		})
	}
}

func TestBinPathRoundTrip(t *testing.T) {
	configs := []ServiceConfiguration{
		{Executable: "ping 127.0.0.1 -n 5"},
		{Executable: `C:\dir with space\app.exe --name "x y"`, LogPath: `D:\out dir\log.txt`},
		{Executable: `app a\\"b c\`, LogPath: `\\server\share\`},
		{Executable: "tab\tseparated", LogPath: "console"},
		{Executable: `"C:\quoted program.exe" arg`},
	}

	for _, c := range configs {
		t.Run(c.Executable, func(t *testing.T) {
			binary := `C:\Program Files\svchost\svchost.exe`
			args := SplitBinPath(BinPath(binary, &c))
			require.NotEmpty(t, args)
			assert.Equal(t, binary, args[0])

			parsed, err := ParseArgs(args[1:])
			require.NoError(t, err)
			assert.Equal(t, c.Executable, parsed.Executable)
			assert.Equal(t, c.LogPath, parsed.LogPath)
		})
	}
}

func TestSplitBinPath(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`a b  c`, []string{"a", "b", "c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`a\b c`, []string{`a\b`, "c"}},
		{`"a\"b"`, []string{`a"b`}},
		{`"a\\" b`, []string{`a\`, "b"}},
		{`""`, []string{""}},
		{`  `, nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitBinPath(tt.line), tt.line)
	}
}

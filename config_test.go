package svchost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want ServiceConfiguration
	}{
		{
			name: "executable only",
			args: []string{"-exe", "ping 127.0.0.1"},
			want: ServiceConfiguration{Executable: "ping 127.0.0.1", Action: ActionStart},
		},
		{
			name: "all flags",
			args: []string{
				"-exe", `C:\tools\app.exe -v`,
				"-dn", "My App",
				"-sn", "myapp",
				"-ac", "User",
				"-u", `DOMAIN\svc`,
				"-p", "hunter2",
				"-action", "Install",
				"-log", `C:\logs\app.log`,
				"-sm", "windows",
			},
			want: ServiceConfiguration{
				Executable:  `C:\tools\app.exe -v`,
				DisplayName: "My App",
				ServiceName: "myapp",
				Account:     AccountUser,
				UserName:    `DOMAIN\svc`,
				Password:    "hunter2",
				Action:      ActionInstall,
				LogPath:     `C:\logs\app.log`,
				Manager:     ServiceTypeWindows,
			},
		},
		{
			name: "order insensitive",
			args: []string{"-log", "console", "-action", "Run", "-exe", "app"},
			want: ServiceConfiguration{Executable: "app", LogPath: "console", Action: ActionRun},
		},
		{
			name: "unknown flags ignored",
			args: []string{"-verbose", "yes", "-exe", "app", "exe", "not-a-flag"},
			want: ServiceConfiguration{Executable: "app"},
		},
		{
			name: "later pair wins",
			args: []string{"-exe", "first", "-exe", "second"},
			want: ServiceConfiguration{Executable: "second"},
		},
		{
			name: "accounts",
			args: []string{"-exe", "app", "-ac", "NetworkService"},
			want: ServiceConfiguration{Executable: "app", Account: AccountNetworkService},
		},
		{
			name: "no executable still parses",
			args: []string{"-action", "Uninstall", "-sn", "app"},
			want: ServiceConfiguration{ServiceName: "app", Action: ActionUninstall},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseArgsNoConfig(t *testing.T) {
	for _, args := range [][]string{nil, {}, {"-exe"}, {"-exe", "app", "-log"}} {
		got, err := ParseArgs(args)
		assert.ErrorIs(t, err, ErrNoConfig, "%q", args)
		assert.Nil(t, got)
	}
}

func TestParseArgsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown action", []string{"-exe", "app", "-action", "Restart"}},
		{"action is case sensitive", []string{"-exe", "app", "-action", "install"}},
		{"unknown account", []string{"-exe", "app", "-ac", "Admin"}},
		{"account is case sensitive", []string{"-exe", "app", "-ac", "localsystem"}},
		{"unknown manager", []string{"-exe", "app", "-sm", "upstart"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Nil(t, got)
		})
	}
}

func TestEnumStrings(t *testing.T) {
	for _, a := range []Action{ActionStart, ActionInstall, ActionUninstall, ActionRun} {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	for _, a := range []Account{AccountLocalSystem, AccountLocalService, AccountNetworkService, AccountUser} {
		got, err := ParseAccount(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		executable    string
		wantProgram   string
		wantArguments string
	}{
		{"ping 127.0.0.1 -n 5", "ping", "127.0.0.1 -n 5"},
		{"app", "app", ""},
		{"app ", "app", ""},
		{"  app  two  spaces", "app", " two  spaces"},
		{`app "quoted arg" x`, "app", `"quoted arg" x`},
		{"app\targ", "app", "arg"},
		{"", "", ""},
	}

	for _, tt := range tests {
		program, arguments := SplitCommandLine(tt.executable)
		if program != tt.wantProgram || arguments != tt.wantArguments {
			t.Errorf("SplitCommandLine(%q) = (%q, %q), want (%q, %q)",
				tt.executable, program, arguments, tt.wantProgram, tt.wantArguments)
		}
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		logPath string
		want    LogRoute
	}{
		{"", RouteNone},
		{"  ", RouteNone},
		{"console", RouteConsole},
		{"CONSOLE", RouteConsole},
		{"Console", RouteConsole},
		{"console.log", RouteFile},
		{"/var/log/app.log", RouteFile},
	}

	for _, tt := range tests {
		if got := RouteFor(tt.logPath); got != tt.want {
			t.Errorf("RouteFor(%q) = %v, want %v", tt.logPath, got, tt.want)
		}
	}
}

func TestServiceConfigurationNames(t *testing.T) {
	tests := []struct {
		name      string
		config    ServiceConfiguration
		wantName  string
		wantLabel string
	}{
		{"explicit", ServiceConfiguration{Executable: "app", ServiceName: "svc", DisplayName: "Service"}, "svc", "Service"},
		{"display falls back to name", ServiceConfiguration{Executable: "app", ServiceName: "svc"}, "svc", "svc"},
		{"derived from program", ServiceConfiguration{Executable: "/usr/bin/pinger.sh -c 1"}, "pinger", "pinger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.config.Name())
			assert.Equal(t, tt.wantLabel, tt.config.Label())
		})
	}
}

func TestServiceConfigurationValidate(t *testing.T) {
	assert.ErrorIs(t, (&ServiceConfiguration{}).Validate(), ErrNoExecutable)
	assert.ErrorIs(t, (&ServiceConfiguration{Executable: "   "}).Validate(), ErrNoExecutable)
	assert.NoError(t, (&ServiceConfiguration{Executable: "app"}).Validate())
}

func TestServiceConfigurationClone(t *testing.T) {
	var nilConfig *ServiceConfiguration
	assert.Nil(t, nilConfig.Clone())

	c := &ServiceConfiguration{Executable: "app", LogPath: "console"}
	clone := c.Clone()
	clone.Executable = "other"
	assert.Equal(t, "app", c.Executable)
	assert.Equal(t, RouteConsole, clone.LogRoute())
}

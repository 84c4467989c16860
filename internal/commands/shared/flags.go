// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

// Global flag values - set by root command
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	jqFlag      string
	configFlag  string
	teamFlag    string
	apiURLFlag  string
	tokenFlag   string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// GlobalFlagPointers groups the persistent flag targets for binding by the root command.
type GlobalFlagPointers struct {
	Verbose *bool
	Quiet   *bool
	JSON    *bool
	JQ      *string
	Config  *string
	Team    *string
	APIURL  *string
	Token   *string
}

// RegisterFlagPointers returns pointers to flag variables for binding.
func RegisterFlagPointers() GlobalFlagPointers {
	return GlobalFlagPointers{
		Verbose: &verboseFlag,
		Quiet:   &quietFlag,
		JSON:    &jsonFlag,
		JQ:      &jqFlag,
		Config:  &configFlag,
		Team:    &teamFlag,
		APIURL:  &apiURLFlag,
		Token:   &tokenFlag,
	}
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON reports whether JSON output was requested. --jq implies --json.
func GetJSON() bool {
	return jsonFlag || jqFlag != ""
}

// GetJQ returns the --jq filter expression
func GetJQ() string {
	return jqFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetTeam returns the --team override
func GetTeam() string {
	return teamFlag
}

// GetAPIURL returns the --api-url override
func GetAPIURL() string {
	return apiURLFlag
}

// GetToken returns the --token override
func GetToken() string {
	return tokenFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

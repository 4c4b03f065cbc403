package config

/**
 * Named AWS profile mapping
 * @property {string} name - Logical profile name used by callers
 * @property {string} aws_profile - Credential profile passed to the aws CLI
 * @property {string} region - AWS region passed to the aws CLI
 */
type ProfileConfig struct {
	Name       string `mapstructure:"name"`
	AwsProfile string `mapstructure:"aws_profile"`
	Region     string `mapstructure:"region"`
}

/**
 * Resolve a logical profile name to aws CLI credential arguments
 * @param {string} name - Logical profile name, "" selects the aws default
 * @returns {string, string} Returns credential profile and region
 * @description
 * - Looks the name up in the configured profile list
 * - Unknown names fall through as the literal aws profile with no region,
 *   leaving region selection to the CLI configuration
 */
func ResolveProfile(name string) (string, string) {
	if name == "" {
		return "", ""
	}
	for _, p := range Config.Profiles {
		if p.Name == name {
			return p.AwsProfile, p.Region
		}
	}
	return name, ""
}

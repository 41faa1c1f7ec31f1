package config

const (
	defaultOutputDir     = "~/Downloads/WhisperWatch"
	defaultModel         = "large-v3"
	defaultLogDir        = "~/.local/share/whisperwatch/logs"
	defaultModelCacheDir = "~/.cache/whisperwatch/models"
	defaultModelBaseURL  = "https://huggingface.co"
	defaultWhisperBinary = "whisper-cli"
	defaultLanguage      = "auto"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// GPUToggleEnv is the environment variable that opts in to accelerated-device
// attempts regardless of the config file setting.
const GPUToggleEnv = "WHISPER_WATCH_USE_GPU"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		OutputDir: defaultOutputDir,
		Model:     defaultModel,
		LogDir:    defaultLogDir,
		Models: Models{
			CacheDir: defaultModelCacheDir,
			BaseURL:  defaultModelBaseURL,
		},
		Whisper: Whisper{
			Binary:   defaultWhisperBinary,
			Language: defaultLanguage,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

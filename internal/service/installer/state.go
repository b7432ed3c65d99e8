package installer

const (
	keyHandle        = "GREY_BSKY_HANDLE"
	keyAppPassword   = "GREY_BSKY_APP_PASSWORD"
	keyOpenAI        = "OPENAI_API_KEY"
	keyUpdateTime    = "GREY_MEMORY_UPDATE_TIME"
	keyTimezone      = "GREY_MEMORY_TIMEZONE"
	keyAlertChannel  = "GREY_ALERT_CHANNEL"
	keyTelegramToken = "GREY_TELEGRAM_TOKEN"
	keyTelegramOwner = "GREY_TELEGRAM_OWNER_ID"
	keyDebug         = "GREY_DEBUG"
)

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) telegramSelected() bool {
	return s.EnvVars[keyAlertChannel] == "telegram"
}

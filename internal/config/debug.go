package config

import "os"

func IsDebug() bool {
	return os.Getenv("GREY_DEBUG") == "1"
}

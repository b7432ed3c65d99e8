package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Handle   string        `env:"GREY_HANDLE,required"`
	Password string        `env:"GREY_PASSWORD" mask:"true"`
	Interval time.Duration `env:"GREY_INTERVAL"`
	Floor    float64       `env:"GREY_FLOOR"`
	Keywords []string      `env:"GREY_KEYWORDS"`
	Enabled  bool          `env:"GREY_ENABLED"`
	Empty    string        `env:"GREY_EMPTY"`
	NoTag    string
	hidden   string `env:"GREY_HIDDEN"`
}

func TestMarshalEnv(t *testing.T) {
	c := &sample{
		Handle:   "grey.bsky.social",
		Password: "secret",
		Interval: 45 * time.Minute,
		Floor:    0.7,
		Keywords: []string{"ai", "ml"},
		NoTag:    "ignored",
		hidden:   "ignored",
	}

	got, err := MarshalEnv(c)
	require.NoError(t, err)
	assert.Equal(t,
		"GREY_HANDLE=grey.bsky.social\nGREY_PASSWORD=secret\nGREY_INTERVAL=45m0s\nGREY_FLOOR=0.7\nGREY_KEYWORDS=ai,ml\n",
		got)
}

func TestMarshalEnvMasked(t *testing.T) {
	got, err := MarshalEnvMasked(sample{Handle: "h", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "GREY_HANDLE=h\nGREY_PASSWORD=****\n", got)
}

func TestMarshalEnv_RejectsNonStruct(t *testing.T) {
	_, err := MarshalEnv("nope")
	assert.Error(t, err)
}

func TestMarshalMap_SortedAndSkipsEmpty(t *testing.T) {
	got := MarshalMap(map[string]string{"B": "2", "A": "1", "C": ""})
	assert.Equal(t, "A=1\nB=2\n", got)
}

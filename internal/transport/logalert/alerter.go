// Package logalert delivers operator alerts to the process log.
package logalert

import (
	"context"

	"github.com/sandevgo/greybot/pkg/conv"
	"github.com/sandevgo/greybot/pkg/log"
)

type Alerter struct{}

func New() *Alerter {
	return &Alerter{}
}

func (a *Alerter) Alert(ctx context.Context, markdown string) error {
	log.FromCtx(ctx).Warn().Str("alert", conv.Preview(markdown, 500)).Msg("operator alert")
	return nil
}

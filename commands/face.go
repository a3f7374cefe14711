package commands

import (
	"fmt"
	"strconv"
	"strings"

	"commandbook/internal/host"
)

var Face = Define(Definition{
	Name:        "face",
	Aliases:     []string{"look"},
	Usage:       "face <yaw> [pitch]",
	Description: "turn to face a direction (yaw 0 is south, pitch 90 is straight down)",
}, func(ctx *Context) bool {
	if ctx.Player == nil {
		return ctx.fail(host.ErrRequiresPlayer)
	}
	args := strings.Fields(ctx.Arg)
	if len(args) == 0 || len(args) > 2 {
		return ctx.usage()
	}
	yaw, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return ctx.usage()
	}
	pitch := 0.0
	if len(args) == 2 {
		if pitch, err = strconv.ParseFloat(args[1], 64); err != nil {
			return ctx.usage()
		}
	}
	if pitch < -90 || pitch > 90 {
		return ctx.warn("Pitch must be between -90 and 90.")
	}
	ctx.World.SetRotation(ctx.Player, pitch, yaw)
	return ctx.reply(fmt.Sprintf("You now face yaw %.0f, pitch %.0f.", yaw, pitch))
})

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quizmaster/profile-kit/pkg/positioner"
)

type opKind int

const (
	opEdit opKind = iota + 1
	opExit
	opDown
	opMove
	opUp
	opZoomIn
	opZoomOut
	opWheel
	opClick
	opReset
	opShow
	opQuit
)

// command is one parsed line of the position session.
type command struct {
	op    opKind
	point positioner.Point
	delta float64
	hit   positioner.Hit
}

// parseCommand parses lines such as "down 10 20", "zoom +" or "click outside".
// Blank lines and lines starting with # parse to the zero command.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return command{}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "edit":
		return noArgs(opEdit, args)
	case "exit", "done":
		return noArgs(opExit, args)
	case "up":
		return noArgs(opUp, args)
	case "reset":
		return noArgs(opReset, args)
	case "show":
		return noArgs(opShow, args)
	case "quit", "q":
		return noArgs(opQuit, args)
	case "down", "move":
		if len(args) != 2 {
			return command{}, fmt.Errorf("%s needs X Y", name)
		}
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return command{}, fmt.Errorf("bad X %q", args[0])
		}
		y, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return command{}, fmt.Errorf("bad Y %q", args[1])
		}
		op := opDown
		if name == "move" {
			op = opMove
		}
		return command{op: op, point: positioner.Point{X: x, Y: y}}, nil
	case "zoom":
		if len(args) != 1 {
			return command{}, fmt.Errorf("zoom needs + or -")
		}
		switch args[0] {
		case "+", "in":
			return command{op: opZoomIn}, nil
		case "-", "out":
			return command{op: opZoomOut}, nil
		}
		return command{}, fmt.Errorf("zoom needs + or -, got %q", args[0])
	case "wheel":
		if len(args) != 1 {
			return command{}, fmt.Errorf("wheel needs DY")
		}
		dy, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return command{}, fmt.Errorf("bad DY %q", args[0])
		}
		return command{op: opWheel, delta: dy}, nil
	case "click":
		if len(args) != 1 {
			return command{}, fmt.Errorf("click needs outside, image or zoom")
		}
		switch args[0] {
		case "outside":
			return command{op: opClick, hit: positioner.HitOutside}, nil
		case "image":
			return command{op: opClick, hit: positioner.HitImage}, nil
		case "zoom":
			return command{op: opClick, hit: positioner.HitZoomControl}, nil
		}
		return command{}, fmt.Errorf("unknown click target %q", args[0])
	}
	return command{}, fmt.Errorf("unknown command %q", name)
}

func noArgs(op opKind, args []string) (command, error) {
	if len(args) != 0 {
		return command{}, fmt.Errorf("unexpected arguments %q", strings.Join(args, " "))
	}
	return command{op: op}, nil
}

// apply runs cmd against p. It reports false when the session should end.
func apply(p *positioner.Positioner, cmd command) bool {
	switch cmd.op {
	case opEdit:
		p.EnterEdit()
	case opExit:
		p.ExitEdit()
	case opDown:
		p.Dispatch(positioner.Event{Kind: positioner.EventPointerDown, Point: cmd.point})
	case opMove:
		p.Dispatch(positioner.Event{Kind: positioner.EventPointerMove, Point: cmd.point})
	case opUp:
		p.Dispatch(positioner.Event{Kind: positioner.EventPointerUp})
	case opZoomIn:
		p.ZoomIn()
	case opZoomOut:
		p.ZoomOut()
	case opWheel:
		p.Dispatch(positioner.FromWheel(cmd.delta))
	case opClick:
		p.Dispatch(positioner.FromClick(cmd.hit))
	case opReset:
		p.ResetPosition()
	case opQuit:
		return false
	}
	return true
}

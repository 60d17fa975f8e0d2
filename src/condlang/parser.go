// SPDX-License-Identifier: MIT
// Package condlang parses the condition mini-language — the compact,
// one-line grammar used by dict config task definitions — into the
// same Condition tree a Go caller would build by hand from the
// condition/statement packages. It is additive: a dict config author
// who wants something the grammar can't express builds the condition
// in Go and the loader skips the parser entirely for that task.
//
//	cond      := term ('&' term | '|' term)* | '~' cond
//	term      := time_cond | task_cond | param_cond | 'true' | 'false' | '(' cond ')'
//	time_cond := ('daily'|'weekly'|'monthly'|'yearly'|'hourly'|'minutely')
//	             ('starting' HH:MM)? ('ending' HH:MM)?
//	task_cond := ('has started'|'has succeeded'|'has failed'|'has finished'|'is running')
//	             'task' NAME ('past' duration)?
//	param_cond := 'param' NAME ('=' VALUE)?
package condlang

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/statement"
	"github.com/Grigoriy457/rocketry/src/timeperiod"
)

// Parse compiles a condition string into a Condition tree. An empty or
// all-whitespace src is rejected rather than silently treated as
// AlwaysTrue, since that's almost always a missing field in the config
// it came from.
func Parse(src string) (condition.Condition, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("condlang: empty condition")
	}
	p := &parser{lex: newLexer(src)}
	p.advance()
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("condlang: unexpected trailing input starting at %q", p.tok.text)
	}
	return cond, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) word() string { return strings.ToLower(p.tok.text) }

func (p *parser) parseCond() (condition.Condition, error) {
	if p.tok.kind == tokTilde {
		p.advance()
		inner, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		return condition.Not(inner), nil
	}

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAmp || p.tok.kind == tokPipe {
		op := p.tok.kind
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op == tokAmp {
			left = condition.And(left, right)
		} else {
			left = condition.Or(left, right)
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (condition.Condition, error) {
	switch p.tok.kind {
	case tokLParen:
		p.advance()
		inner, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("condlang: expected ')', got %q", p.tok.text)
		}
		p.advance()
		return inner, nil
	case tokWord:
		return p.parseWordTerm()
	default:
		return nil, fmt.Errorf("condlang: unexpected token %q", p.tok.text)
	}
}

var timeUnits = map[string]timeperiod.Unit{
	"daily":    timeperiod.Daily,
	"weekly":   timeperiod.Weekly,
	"monthly":  timeperiod.Monthly,
	"yearly":   timeperiod.Yearly,
	"hourly":   timeperiod.Hourly,
	"minutely": timeperiod.Minutely,
}

func (p *parser) parseWordTerm() (condition.Condition, error) {
	switch p.word() {
	case "true":
		p.advance()
		return statement.AlwaysTrue, nil
	case "false":
		p.advance()
		return statement.AlwaysFalse, nil
	case "has", "is":
		return p.parseTaskCond()
	case "param":
		return p.parseParamCond()
	default:
		if _, ok := timeUnits[p.word()]; ok {
			return p.parseTimeCond()
		}
		return nil, fmt.Errorf("condlang: unrecognized term %q", p.tok.text)
	}
}

func (p *parser) parseTimeCond() (condition.Condition, error) {
	unit := p.word()
	p.advance()

	var start, end *timeperiod.Clock
anchors:
	for p.tok.kind == tokWord {
		switch p.word() {
		case "starting":
			p.advance()
			c, err := p.expectClock()
			if err != nil {
				return nil, err
			}
			start = &c
		case "ending":
			p.advance()
			c, err := p.expectClock()
			if err != nil {
				return nil, err
			}
			end = &c
		default:
			break anchors
		}
	}
	period := timeperiod.Cyclic{Unit: timeUnits[unit], Start: start, End: end}
	return statement.TimeWithin(capitalize(unit)+"Time", period), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p *parser) expectClock() (timeperiod.Clock, error) {
	if p.tok.kind != tokWord {
		return timeperiod.Clock{}, fmt.Errorf("condlang: expected HH:MM, got %q", p.tok.text)
	}
	c, err := timeperiod.ParseClock(p.tok.text)
	if err != nil {
		return timeperiod.Clock{}, err
	}
	p.advance()
	return c, nil
}

func (p *parser) parseTaskCond() (condition.Condition, error) {
	lead := p.word()
	p.advance()

	var verb string
	switch lead {
	case "has":
		if p.tok.kind != tokWord {
			return nil, fmt.Errorf("condlang: expected 'started'/'succeeded'/'failed'/'finished' after 'has'")
		}
		verb = p.word()
		p.advance()
	case "is":
		if p.tok.kind != tokWord || p.word() != "running" {
			return nil, fmt.Errorf("condlang: expected 'running' after 'is'")
		}
		verb = "running"
		p.advance()
	}

	if p.tok.kind != tokWord || p.word() != "task" {
		return nil, fmt.Errorf("condlang: expected 'task', got %q", p.tok.text)
	}
	p.advance()

	if p.tok.kind != tokWord {
		return nil, fmt.Errorf("condlang: expected a task name")
	}
	name := p.tok.text
	p.advance()

	var period timeperiod.Period
	if p.tok.kind == tokWord && p.word() == "past" {
		p.advance()
		d, err := p.expectDuration()
		if err != nil {
			return nil, err
		}
		period = timeperiod.Trailing{Span: d}
	}

	switch verb {
	case "started":
		return statement.TaskStarted(name, period), nil
	case "succeeded":
		return statement.TaskSucceeded(name, period), nil
	case "failed":
		return statement.TaskFailed(name, period), nil
	case "finished":
		return statement.TaskFinished(name, period), nil
	case "running":
		return statement.TaskRunning(name), nil
	default:
		return nil, fmt.Errorf("condlang: unknown task condition %q", verb)
	}
}

var durationUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// expectDuration accepts either a Go-syntax duration ("2h30m") or a
// split "<number> <unit>" form ("2 hours"), since the latter reads more
// naturally in a condition string meant for humans to author.
func (p *parser) expectDuration() (time.Duration, error) {
	if p.tok.kind != tokWord {
		return 0, fmt.Errorf("condlang: expected a duration")
	}
	text := p.tok.text
	p.advance()

	if d, err := time.ParseDuration(text); err == nil {
		return d, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("condlang: invalid duration %q", text)
	}
	if p.tok.kind != tokWord {
		return 0, fmt.Errorf("condlang: expected a duration unit after %q", text)
	}
	unit := strings.TrimSuffix(p.word(), "s")
	mult, ok := durationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("condlang: unknown duration unit %q", p.tok.text)
	}
	p.advance()
	return time.Duration(n) * mult, nil
}

func (p *parser) parseParamCond() (condition.Condition, error) {
	p.advance() // consume "param"
	if p.tok.kind != tokWord {
		return nil, fmt.Errorf("condlang: expected a parameter name after 'param'")
	}
	name := p.tok.text
	p.advance()

	if p.tok.kind == tokWord && p.tok.text == "=" {
		p.advance()
		if p.tok.kind != tokWord {
			return nil, fmt.Errorf("condlang: expected a value after '=' in param condition")
		}
		value := literalValue(p.tok.text)
		p.advance()
		return statement.ParamExists(map[string]any{name: value}), nil
	}
	return paramSet(name), nil
}

// paramSet is true iff name is present among session parameters,
// regardless of its value — the existence-only counterpart to
// statement.ParamExists, which always checks a specific value.
func paramSet(name string) *statement.Statement {
	return statement.FromFunc("ParamSet", func(c *statement.Context, args []any, kwargs map[string]any) (any, error) {
		key, _ := kwargs["name"].(string)
		_, ok := c.Parameters[key]
		return ok, nil
	}).WithKwargs(map[string]any{"name": name})
}

func literalValue(text string) any {
	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

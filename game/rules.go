package game

import (
	"fmt"
	"strings"
)

type KoRule int

const (
	KoSimple KoRule = iota
	KoPositional
	KoSituational
)

type ScoringRule int

const (
	ScoringArea ScoringRule = iota
	ScoringTerritory
)

type TaxRule int

const (
	TaxNone TaxRule = iota
	TaxSeki
	TaxAll
)

// Rules is the immutable rule set of one game.
type Rules struct {
	KoRule                 KoRule
	ScoringRule            ScoringRule
	TaxRule                TaxRule
	MultiStoneSuicideLegal bool
	HasButton              bool
	Komi                   float32
}

func DefaultRules() Rules {
	return Rules{
		KoRule:                 KoPositional,
		ScoringRule:            ScoringArea,
		TaxRule:                TaxNone,
		MultiStoneSuicideLegal: true,
		Komi:                   7.5,
	}
}

func ParseKoRule(s string) (KoRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SIMPLE":
		return KoSimple, nil
	case "POSITIONAL":
		return KoPositional, nil
	case "SITUATIONAL":
		return KoSituational, nil
	}
	return 0, fmt.Errorf("unknown ko rule %q", s)
}

func ParseScoringRule(s string) (ScoringRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AREA":
		return ScoringArea, nil
	case "TERRITORY":
		return ScoringTerritory, nil
	}
	return 0, fmt.Errorf("unknown scoring rule %q", s)
}

func ParseTaxRule(s string) (TaxRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return TaxNone, nil
	case "SEKI":
		return TaxSeki, nil
	case "ALL":
		return TaxAll, nil
	}
	return 0, fmt.Errorf("unknown tax rule %q", s)
}

func (k KoRule) String() string {
	return [...]string{"SIMPLE", "POSITIONAL", "SITUATIONAL"}[k]
}

func (s ScoringRule) String() string {
	return [...]string{"AREA", "TERRITORY"}[s]
}

func (t TaxRule) String() string {
	return [...]string{"NONE", "SEKI", "ALL"}[t]
}

func (r Rules) String() string {
	return fmt.Sprintf("ko%s score%s tax%s sui%t button%t komi%g",
		r.KoRule, r.ScoringRule, r.TaxRule, r.MultiStoneSuicideLegal, r.HasButton, r.Komi)
}

package shape

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Sphere Kind = iota
	Heart
	Flower
	Saturn
	Fireworks
	kindCount
)

var kindNames = [kindCount]string{
	Sphere:    "sphere",
	Heart:     "heart",
	Flower:    "flower",
	Saturn:    "saturn",
	Fireworks: "fireworks",
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) Valid() bool { return k >= 0 && k < kindCount }

// Next returns the following kind, wrapping after Fireworks.
func (k Kind) Next() Kind {
	if !k.Valid() {
		return Sphere
	}
	return (k + 1) % kindCount
}

// All returns every kind in declaration order.
func All() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Sphere; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown shape: %s (available: %s)", name, strings.Join(kindNames[:], ", "))
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid shape kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

package expr

import (
	"fmt"
	"math"
)

// stdFuncs returns the standard function table. Deliberately small: the
// engine only needs the arithmetic helpers animation properties reach for.
func stdFuncs() map[string]Func {
	return map[string]Func{
		"abs":   numFunc1("abs", math.Abs),
		"floor": numFunc1("floor", math.Floor),
		"ceil":  numFunc1("ceil", math.Ceil),
		"round": numFunc1("round", math.Round),
		"sqrt":  numFunc1("sqrt", math.Sqrt),
		"sin":   numFunc1("sin", math.Sin),
		"cos":   numFunc1("cos", math.Cos),
		"pow":   numFunc2("pow", math.Pow),
		"min":   numFunc2("min", math.Min),
		"max":   numFunc2("max", math.Max),
		"len": func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("want 1 argument, got %d", len(args))
			}
			s, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("want a string argument")
			}
			return float64(len(s)), nil
		},
	}
}

func numFunc1(name string, f func(float64) float64) Func {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		n, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("want a numeric argument")
		}
		return f(n), nil
	}
}

func numFunc2(name string, f func(float64, float64) float64) Func {
	return func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		a, aok := args[0].(float64)
		b, bok := args[1].(float64)
		if !aok || !bok {
			return nil, fmt.Errorf("want numeric arguments")
		}
		return f(a, b), nil
	}
}

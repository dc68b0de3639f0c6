//go:build !js_eval

package rules

func newJSEngine(engineConfig) (Engine, error) {
	return nil, ErrEngineUnavailable
}

func jsAvailable() bool {
	return false
}

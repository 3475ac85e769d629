package authcore

import "context"

// VerifyGoogleIDToken validates a Google ID token against Google's
// published keys and the configured audiences, returning the normalized
// identity. Provider errors (expired, bad signature, audience mismatch)
// pass through unaltered.
func (e *Engine) VerifyGoogleIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if e == nil || e.oauth == nil {
		return nil, ErrEngineNotReady
	}

	id, err := e.oauth.VerifyGoogle(ctx, idToken)
	if err != nil {
		e.metricInc(MetricOAuthRejected)
		return nil, err
	}
	e.metricInc(MetricOAuthVerified)
	return id, nil
}

// VerifyAppleIDToken validates a Sign in with Apple ID token. Apple
// tokens routinely omit name and picture; only subject and email are
// required.
func (e *Engine) VerifyAppleIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if e == nil || e.oauth == nil {
		return nil, ErrEngineNotReady
	}

	id, err := e.oauth.VerifyApple(ctx, idToken)
	if err != nil {
		e.metricInc(MetricOAuthRejected)
		return nil, err
	}
	e.metricInc(MetricOAuthVerified)
	return id, nil
}

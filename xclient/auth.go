package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

// Login performs the platform's multi-step onboarding login flow with the
// given credentials. On success the session cookies are captured on the
// client; the caller observes success through IsLoggedIn.
func (c *Client) Login(ctx context.Context, username, password, email string) error {
	slog.Info("logging in", slog.String("user", username))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	guestToken, err := c.acquireGuestToken(ctx)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	fr, err := c.initLoginFlow(ctx, guestToken)
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for round := 0; round < 10; round++ {
		if len(fr.Subtasks) == 0 {
			break
		}

		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", username), slog.String("subtask", subtaskID))

		switch subtaskID {
		case "LoginJsInstrumentationSubtask":
			fr, err = c.submitJsInstrumentation(ctx, guestToken, fr.FlowToken)

		case "LoginEnterUserIdentifierSSO":
			fr, err = c.submitUsernameStep(ctx, guestToken, fr.FlowToken, username)

		case "LoginEnterPassword":
			fr, err = c.submitPasswordStep(ctx, guestToken, fr.FlowToken, password)

		case "LoginTwoFactorAuthChallenge":
			if c.cfg.TOTPSecret == "" {
				return fmt.Errorf("2FA required but no TOTP secret for %s", username)
			}
			code, codeErr := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
			if codeErr != nil {
				return fmt.Errorf("TOTP code generation failed for %s: %w", username, codeErr)
			}
			slog.Info("submitting TOTP code", slog.String("user", username))
			fr, err = c.submitTOTPStep(ctx, guestToken, fr.FlowToken, code)

		case "LoginEnterAlternateIdentifierSubtask":
			// The platform asks for an alternate identifier when it
			// distrusts the login; the account email satisfies it.
			identifier := email
			if identifier == "" {
				identifier = username
			}
			fr, err = c.submitAlternateIdentifier(ctx, guestToken, fr.FlowToken, identifier)

		case "LoginSuccessSubtask", "AccountDuplicationCheck":
			slog.Debug("login flow complete", slog.String("user", username), slog.String("terminal", subtaskID))
			goto done

		case "DenyLoginSubtask":
			return fmt.Errorf("login denied for %s (account may be locked or disabled)", username)

		default:
			slog.Warn("unknown login subtask, skipping", slog.String("user", username), slog.String("subtask", subtaskID))
			fr, err = c.submitGenericStep(ctx, guestToken, fr.FlowToken, subtaskID)
		}

		if err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, username, err)
		}
	}

done:
	authToken := c.bc.GetCookieValue("https://api.twitter.com", "auth_token")
	if authToken == "" {
		authToken = c.bc.GetCookieValue("https://twitter.com", "auth_token")
	}
	ct0 := c.bc.GetCookieValue("https://api.twitter.com", "ct0")
	if ct0 == "" {
		ct0 = c.bc.GetCookieValue("https://twitter.com", "ct0")
	}
	if ct0 == "" {
		ct0 = generateCT0()
	}

	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", username)
	}

	c.setCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", username))
	return nil
}

// getGuestToken fetches a guest token for the login flow.
func (c *Client) getGuestToken(ctx context.Context) (string, error) {
	headers := map[string]string{
		"authorization": "Bearer " + bearerToken,
		"content-type":  "application/json",
		"user-agent":    c.cfg.UserAgent,
	}
	body, _, status, err := c.do(ctx, "POST", twitterAPIURL+"/1.1/guest/activate.json", headers, nil)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := c.getGuestToken(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}

type flowResponse struct {
	FlowToken string        `json:"flow_token"`
	Subtasks  []flowSubtask `json:"subtasks"`
}

type flowSubtask struct {
	SubtaskID string `json:"subtask_id"`
}

func parseFlowResponse(body []byte) (*flowResponse, error) {
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}

// loginFlowPayload is the subtask_versions body for flow_name=login.
const loginFlowPayload = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`

func (c *Client) initLoginFlow(ctx context.Context, guestToken string) (*flowResponse, error) {
	body, _, status, err := c.do(ctx, "POST",
		twitterAPIURL+"/1.1/onboarding/task.json?flow_name=login",
		loginFlowHeaders(guestToken),
		strings.NewReader(loginFlowPayload),
	)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("init flow: HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}

func (c *Client) submitFlowStep(ctx context.Context, guestToken, payload string) (*flowResponse, error) {
	body, _, status, err := c.do(ctx, "POST",
		twitterAPIURL+"/1.1/onboarding/task.json",
		loginFlowHeaders(guestToken),
		strings.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}

func (c *Client) submitJsInstrumentation(ctx context.Context, guestToken, flowToken string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":"LoginJsInstrumentationSubtask","js_instrumentation":{"response":"{\"rf\":{\"a\":\"b\"},\"s\":\"s\"}","link":"next_link"}}]}`,
		flowToken)
	return c.submitFlowStep(ctx, guestToken, payload)
}

func (c *Client) submitUsernameStep(ctx context.Context, guestToken, flowToken, username string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":"LoginEnterUserIdentifierSSO","settings_list":{"setting_responses":[{"key":"user_identifier","response_data":{"text_data":{"result":%q}}}],"link":"next_link"}}]}`,
		flowToken, username)
	return c.submitFlowStep(ctx, guestToken, payload)
}

func (c *Client) submitPasswordStep(ctx context.Context, guestToken, flowToken, password string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":"LoginEnterPassword","enter_password":{"password":%q,"link":"next_link"}}]}`,
		flowToken, password)
	return c.submitFlowStep(ctx, guestToken, payload)
}

func (c *Client) submitTOTPStep(ctx context.Context, guestToken, flowToken, code string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":"LoginTwoFactorAuthChallenge","enter_text":{"text":%q,"link":"next_link"}}]}`,
		flowToken, code)
	return c.submitFlowStep(ctx, guestToken, payload)
}

func (c *Client) submitAlternateIdentifier(ctx context.Context, guestToken, flowToken, identifier string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":"LoginEnterAlternateIdentifierSubtask","enter_text":{"text":%q,"link":"next_link"}}]}`,
		flowToken, identifier)
	return c.submitFlowStep(ctx, guestToken, payload)
}

func (c *Client) submitGenericStep(ctx context.Context, guestToken, flowToken, subtaskID string) (*flowResponse, error) {
	payload := fmt.Sprintf(`{"flow_token":%q,"subtask_inputs":[{"subtask_id":%q,"action_list":{"link":"next_link"}}]}`,
		flowToken, subtaskID)
	return c.submitFlowStep(ctx, guestToken, payload)
}

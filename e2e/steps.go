package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the authorization engine is running$`, tc.engineIsRunning)

	// Session steps
	ctx.Step(`^I log in as "([^"]*)"$`, tc.logInAs)
	ctx.Step(`^"([^"]*)" is logged in$`, tc.actorIsLoggedIn)

	// Identity steps
	ctx.Step(`^I fetch my identity$`, tc.fetchMyIdentity)
	ctx.Step(`^I register an identity with DID "([^"]*)" and role "([^"]*)"$`, tc.registerIdentity)

	// Consent steps
	ctx.Step(`^I create a consent for "([^"]*)" with purpose "([^"]*)" and data types "([^"]*)"$`, tc.createConsent)
	ctx.Step(`^"([^"]*)" checks the consent$`, tc.actorChecksConsent)
	ctx.Step(`^I revoke the consent$`, tc.revokeConsent)

	// Record and access steps
	ctx.Step(`^I upload a record titled "([^"]*)"$`, tc.uploadRecord)
	ctx.Step(`^"([^"]*)" requests access to the record under that consent$`, tc.actorRequestsAccess)
	ctx.Step(`^I grant the access request$`, tc.grantAccessRequest)
	ctx.Step(`^I deny the access request$`, tc.denyAccessRequest)
	ctx.Step(`^I revoke access for "([^"]*)" on the record$`, tc.revokeAccess)
	ctx.Step(`^"([^"]*)" should have access to the record$`, tc.actorShouldHaveAccess)
	ctx.Step(`^"([^"]*)" should not have access to the record$`, tc.actorShouldNotHaveAccess)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)" without authorization$`, tc.getWithoutAuth)
	ctx.Step(`^I GET "([^"]*)"$`, tc.getAsActor)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
}

func (tc *TestContext) engineIsRunning(ctx context.Context) error {
	return nil
}

func (tc *TestContext) logInAs(ctx context.Context, actor string) error {
	if err := tc.actorIsLoggedIn(ctx, actor); err != nil {
		return err
	}
	tc.actor = actor
	return nil
}

func (tc *TestContext) actorIsLoggedIn(ctx context.Context, actor string) error {
	body := map[string]any{"account": account(actor)}
	if err := tc.Do("", http.MethodPost, "/auth/sessions", body); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusCreated {
		return fmt.Errorf("login as %s failed: %d %s", actor, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	token, err := tc.GetResponseField("token")
	if err != nil {
		return err
	}
	tc.tokens[actor] = token.(string)
	return nil
}

func (tc *TestContext) fetchMyIdentity(ctx context.Context) error {
	return tc.Do(tc.actor, http.MethodGet, "/identities/me", nil)
}

func (tc *TestContext) registerIdentity(ctx context.Context, did, role string) error {
	body := map[string]any{
		"did":   did,
		"role":  role,
		"name":  "E2E Actor",
		"email": "e2e@example.com",
	}
	return tc.Do(tc.actor, http.MethodPost, "/identities", body)
}

func (tc *TestContext) createConsent(ctx context.Context, consumer, purpose, dataTypes string) error {
	body := map[string]any{
		"consumer":   account(consumer),
		"purpose":    purpose,
		"data_types": strings.Split(dataTypes, ","),
	}
	if err := tc.Do(tc.actor, http.MethodPost, "/consents", body); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode == http.StatusCreated {
		consentID, err := tc.GetResponseField("id")
		if err != nil {
			return err
		}
		tc.ConsentID = consentID.(string)
	}
	return nil
}

func (tc *TestContext) actorChecksConsent(ctx context.Context, actor string) error {
	return tc.Do(actor, http.MethodGet, "/consents/"+tc.ConsentID+"/check", nil)
}

func (tc *TestContext) revokeConsent(ctx context.Context) error {
	return tc.Do(tc.actor, http.MethodDelete, "/consents/"+tc.ConsentID, nil)
}

func (tc *TestContext) uploadRecord(ctx context.Context, title string) error {
	body := map[string]any{
		"ipfs_hash": "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"category":  "lab_results",
		"format":    "fhir",
		"title":     title,
		"file_size": 2048,
	}
	if err := tc.Do(tc.actor, http.MethodPost, "/records", body); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode == http.StatusCreated {
		recordID, err := tc.GetResponseField("id")
		if err != nil {
			return err
		}
		tc.RecordID = recordID.(string)
	}
	return nil
}

func (tc *TestContext) actorRequestsAccess(ctx context.Context, actor string) error {
	body := map[string]any{
		"record_id":  tc.RecordID,
		"patient":    account(tc.actor),
		"consent_id": tc.ConsentID,
	}
	if err := tc.Do(actor, http.MethodPost, "/access/requests", body); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode == http.StatusCreated {
		requestID, err := tc.GetResponseField("id")
		if err != nil {
			return err
		}
		tc.RequestID = requestID.(string)
	}
	return nil
}

func (tc *TestContext) grantAccessRequest(ctx context.Context) error {
	return tc.Do(tc.actor, http.MethodPost, "/access/requests/"+tc.RequestID+"/grant", map[string]any{
		"expires_at": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
}

func (tc *TestContext) denyAccessRequest(ctx context.Context) error {
	return tc.Do(tc.actor, http.MethodPost, "/access/requests/"+tc.RequestID+"/deny", nil)
}

func (tc *TestContext) revokeAccess(ctx context.Context, actor string) error {
	return tc.Do(tc.actor, http.MethodDelete, "/access/grants/"+tc.RecordID+"/"+account(actor), nil)
}

func (tc *TestContext) actorShouldHaveAccess(ctx context.Context, actor string) error {
	return tc.assertAccess(actor, true)
}

func (tc *TestContext) actorShouldNotHaveAccess(ctx context.Context, actor string) error {
	return tc.assertAccess(actor, false)
}

func (tc *TestContext) assertAccess(actor string, want bool) error {
	if err := tc.Do(actor, http.MethodGet, "/access/check?record_id="+tc.RecordID, nil); err != nil {
		return err
	}
	has, err := tc.GetResponseField("has_access")
	if err != nil {
		return err
	}
	if has != want {
		return fmt.Errorf("expected has_access=%v, got %v", want, has)
	}
	return nil
}

func (tc *TestContext) getWithoutAuth(ctx context.Context, path string) error {
	return tc.Do("", http.MethodGet, path, nil)
}

func (tc *TestContext) getAsActor(ctx context.Context, path string) error {
	return tc.Do(tc.actor, http.MethodGet, path, nil)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d: %s", expectedStatus, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, field string) error {
	if !tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", field, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	actualValue, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response: %s", field, tc.LastResponseBody)
	}

	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

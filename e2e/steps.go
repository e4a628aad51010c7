package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the DSNAP service is running$`, tc.serviceIsRunning)

	// Credentials
	ctx.Step(`^I am the bootstrap staff account$`, tc.asBootstrapStaff)
	ctx.Step(`^I use the password "([^"]*)"$`, tc.usePassword)
	ctx.Step(`^I request a token with scopes "([^"]*)"$`, tc.requestToken)
	ctx.Step(`^I use the issued token$`, tc.useIssuedToken)
	ctx.Step(`^I use the bearer token "([^"]*)"$`, tc.useBearer)
	ctx.Step(`^I am anonymous$`, tc.anonymous)

	// Registrations
	ctx.Step(`^I submit a registration for a new registrant with state id "([^"]*)"$`, tc.submitForNewRegistrant)
	ctx.Step(`^I submit the registration:$`, tc.submitDocument)
	ctx.Step(`^I search registrations by the registrant SSN$`, tc.searchByRegistrantSSN)
	ctx.Step(`^I search registrations with "([^"]*)"$`, tc.searchWith)
	ctx.Step(`^I (GET|DELETE) the saved registration$`, tc.onSavedRegistration)
	ctx.Step(`^I update the saved registration state id to "([^"]*)"$`, tc.updateStateID)
	ctx.Step(`^I set the saved registration status to rules (true|false) and user (true|false)$`, tc.setStatus)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be null$`, tc.responseFieldShouldBeNull)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response should list the saved registration only$`, tc.responseListsSavedOnly)
	ctx.Step(`^the response should list no registrations$`, tc.responseListsNothing)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	if err := tc.Do(ctx, http.MethodGet, "/health/live", nil); err != nil {
		return err
	}
	return tc.responseStatusShouldBe(ctx, http.StatusOK)
}

// asBootstrapStaff reads the same variables the server seeds its first account from.
func (tc *TestContext) asBootstrapStaff(context.Context) error {
	tc.Username = os.Getenv("DSNAP_AUTH_BOOTSTRAP_USERNAME")
	tc.Password = os.Getenv("DSNAP_AUTH_BOOTSTRAP_PASSWORD")
	if tc.Username == "" || tc.Password == "" {
		return godog.ErrPending
	}
	tc.AccessToken = ""
	return nil
}

func (tc *TestContext) usePassword(_ context.Context, password string) error {
	tc.Password = password
	return nil
}

func (tc *TestContext) requestToken(ctx context.Context, scopes string) error {
	tc.AccessToken = ""
	body := map[string]any{}
	if scopes != "" {
		body["scope"] = strings.Split(scopes, ",")
	}
	return tc.Do(ctx, http.MethodPost, "/auth/token", body)
}

func (tc *TestContext) useIssuedToken(ctx context.Context) error {
	token, err := tc.Field("access_token")
	if err != nil {
		return err
	}
	return tc.useBearer(ctx, fmt.Sprint(token))
}

func (tc *TestContext) useBearer(_ context.Context, token string) error {
	tc.AccessToken = token
	return nil
}

func (tc *TestContext) anonymous(context.Context) error {
	tc.Username, tc.Password, tc.AccessToken = "", "", ""
	return nil
}

func (tc *TestContext) registrantDocument(stateID string) map[string]any {
	return map[string]any{
		"disaster_id":     34,
		"state_id":        stateID,
		"ebt_card_number": "5077123412341234",
		"household": []map[string]any{
			{"first_name": "Ana", "last_name": "Rivera", "dob": "1980-01-02", "ssn": tc.RegistrantSSN},
			{"first_name": "Luis", "last_name": "Rivera", "dob": "2010-07-08", "ssn": "000000001"},
		},
	}
}

func (tc *TestContext) submitForNewRegistrant(ctx context.Context, stateID string) error {
	return tc.submit(ctx, tc.registrantDocument(stateID))
}

func (tc *TestContext) submitDocument(ctx context.Context, doc *godog.DocString) error {
	return tc.submit(ctx, doc.Content)
}

func (tc *TestContext) submit(ctx context.Context, body any) error {
	if err := tc.Do(ctx, http.MethodPost, "/registrations", body); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode == http.StatusCreated {
		registrationID, err := tc.Field("id")
		if err != nil {
			return err
		}
		tc.RegistrationID = fmt.Sprint(registrationID)
	}
	return nil
}

func (tc *TestContext) searchByRegistrantSSN(ctx context.Context) error {
	return tc.searchWith(ctx, "registrant_ssn="+tc.RegistrantSSN)
}

func (tc *TestContext) searchWith(ctx context.Context, query string) error {
	return tc.Do(ctx, http.MethodGet, "/registrations?"+query, nil)
}

func (tc *TestContext) savedPath() (string, error) {
	if tc.RegistrationID == "" {
		return "", fmt.Errorf("no registration was saved in this scenario")
	}
	return "/registrations/" + url.PathEscape(tc.RegistrationID), nil
}

func (tc *TestContext) onSavedRegistration(ctx context.Context, method string) error {
	path, err := tc.savedPath()
	if err != nil {
		return err
	}
	return tc.Do(ctx, method, path, nil)
}

func (tc *TestContext) updateStateID(ctx context.Context, stateID string) error {
	path, err := tc.savedPath()
	if err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodPut, path, tc.registrantDocument(stateID))
}

func (tc *TestContext) setStatus(ctx context.Context, rules, user string) error {
	path, err := tc.savedPath()
	if err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodPatch, path+"/status", map[string]bool{
		"rules_service_approved": rules == "true",
		"user_approved":          user == "true",
	})
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expectedStatus int) error {
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	actual, err := tc.Field(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actual) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, actual)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldBeNull(_ context.Context, field string) error {
	actual, err := tc.Field(field)
	if err != nil {
		return err
	}
	if actual != nil {
		return fmt.Errorf("field %s: expected null but got %v", field, actual)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !strings.Contains(string(tc.LastResponseBody), text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseListsSavedOnly(context.Context) error {
	items, err := tc.List()
	if err != nil {
		return err
	}
	if len(items) != 1 || fmt.Sprint(items[0]["id"]) != tc.RegistrationID {
		return fmt.Errorf("expected only registration %s, got %d items", tc.RegistrationID, len(items))
	}
	return nil
}

func (tc *TestContext) responseListsNothing(context.Context) error {
	items, err := tc.List()
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected no registrations, got %d", len(items))
	}
	return nil
}

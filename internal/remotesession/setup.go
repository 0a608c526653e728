package remotesession

import (
	"errors"

	"github.com/ucbridge/ha-integration-bridge/internal/entity"
	"github.com/ucbridge/ha-integration-bridge/internal/hubclient"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
)

// stepCredentials is the only form step this driver's setup flow asks
// for: the hub endpoint and long-lived access token, probed before
// being accepted (spec.md §4.4).
const stepCredentials = "credentials"

func credentialsFields() []string {
	return []string{"hub_url", "hub_token"}
}

func credentialsStep() integration.SetupStep {
	return integration.SetupStep{Step: stepCredentials, Fields: credentialsFields()}
}

func credentialsErrorStep(err error) integration.SetupStep {
	return integration.SetupStep{Step: stepCredentials, Fields: credentialsFields(), Code: "AUTH", Error: err.Error()}
}

func completeStep() integration.SetupStep {
	return integration.SetupStep{Complete: true}
}

// parseCredentials extracts hub_url/hub_token from a set_driver_user_data
// payload's input_values.
func parseCredentials(values map[string]string) (url, token string, ok bool) {
	url = values["hub_url"]
	token = values["hub_token"]
	return url, token, url != "" && token != ""
}

func mapEntityError(err error) string {
	switch {
	case errors.Is(err, entity.ErrEntityUnknown):
		return integration.CodeNotFound
	case errors.Is(err, entity.ErrNotSupported):
		return integration.CodeNotSupported
	case errors.Is(err, entity.ErrBadParameter):
		return integration.CodeBadParameter
	case errors.Is(err, hubclient.ErrTimeout):
		return integration.CodeTimeout
	case errors.Is(err, hubclient.ErrNotConnected):
		return integration.CodeNotConnected
	default:
		return integration.CodeHubError
	}
}

// entitiesPayload converts catalog entities to their wire shape for
// get_available_entities/get_entity_states responses.
func entitiesPayload(entities []*entity.Entity) integration.EntityList {
	out := make([]integration.EntityDescriptor, 0, len(entities))
	for _, e := range entities {
		var features []string
		for f := range e.Features {
			features = append(features, f)
		}
		out = append(out, integration.EntityDescriptor{
			EntityID:   string(e.ID),
			EntityType: string(e.Domain),
			Name:       e.FriendlyName,
			State:      e.State,
			Attributes: e.Attributes,
			Features:   features,
		})
	}
	return integration.EntityList{Entities: out}
}

package user

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Function-call names exposed to the Gemini tool-calling mechanism.
const (
	FnGenerateAvatar   = "fc_generate_avatar"
	FnRAGRetrieval     = "fc_rag_retrieval"
	FnSaveModelColor   = "fc_save_model_color"
	FnRevertModelColor = "fc_revert_model_color"
	FnShowMyModel      = "fc_show_my_model"
	FnShowMyAvatar     = "fc_show_my_avatar"
	FnConvertAvatar    = "fc_convert_avatar"
)

// FunctionDeclarations returns the tool describing every function the chat
// model may call. Each declaration is a name/description/parameter-schema
// triple; user_id is injected server-side and never part of the schema.
func FunctionDeclarations() *genai.Tool {
	fcGenerateAvatar := &genai.FunctionDeclaration{
		Name:        FnGenerateAvatar,
		Description: "Create new avatar or avatar. Inject the description into the function that is being called.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description": {
					Type:        genai.TypeString,
					Description: "Description of the picture or avatar",
				},
			},
			Required: []string{"description"},
		},
	}

	fcRAGRetrieval := &genai.FunctionDeclaration{
		Name:        FnRAGRetrieval,
		Description: "Function to be invoked when the prompt is about a super secret game called Cloud Meow.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question_passthrough": {
					Type:        genai.TypeString,
					Description: "The whole user's prompt in the context of this message",
				},
			},
			Required: []string{"question_passthrough"},
		},
	}

	fcSaveModelColor := &genai.FunctionDeclaration{
		Name:        FnSaveModelColor,
		Description: "Save new color when user requests to update his game model. Input is a color in hex format",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"color": {
					Type:        genai.TypeString,
					Description: "Hex color",
				},
			},
			Required: []string{"color"},
		},
	}

	fcRevertModelColor := &genai.FunctionDeclaration{
		Name:        FnRevertModelColor,
		Description: "Revert the color/material of user's model on their request.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}

	fcConvertAvatar := &genai.FunctionDeclaration{
		Name:        FnConvertAvatar,
		Description: "Convert avatar to 3D model.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}

	fcShowMyModel := &genai.FunctionDeclaration{
		Name:        FnShowMyModel,
		Description: "Show user's model / character on the screen.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}

	fcShowMyAvatar := &genai.FunctionDeclaration{
		Name:        FnShowMyAvatar,
		Description: "Show user's current avatar.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}

	return &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{
		fcGenerateAvatar,
		fcRAGRetrieval,
		fcSaveModelColor,
		fcRevertModelColor,
		fcShowMyModel,
		fcShowMyAvatar,
		fcConvertAvatar,
	}}
}

// Call dispatches a function call by name to its handler, injecting the
// user id. String arguments are read from args by the schema's parameter
// names; missing or mistyped arguments dispatch with an empty value, and
// the handler reports the failure in its reply.
func (s *Service) Call(ctx context.Context, name string, args map[string]any, userID string) (HandlerResult, error) {
	stringArg := func(key string) string {
		v, _ := args[key].(string)
		return v
	}

	switch name {
	case FnGenerateAvatar:
		return s.FCGenerateAvatar(ctx, userID, stringArg("description")), nil
	case FnRAGRetrieval:
		return s.FCRAGRetrieval(ctx, userID, stringArg("question_passthrough")), nil
	case FnSaveModelColor:
		return s.FCSaveModelColor(ctx, userID, stringArg("color")), nil
	case FnRevertModelColor:
		return s.FCRevertModelColor(ctx, userID), nil
	case FnShowMyModel:
		return s.FCShowMyModel(ctx, userID), nil
	case FnShowMyAvatar:
		return s.FCShowMyAvatar(ctx, userID), nil
	case FnConvertAvatar:
		return s.FCConvertAvatar(ctx, userID), nil
	default:
		return HandlerResult{}, fmt.Errorf("unknown function call: %s", name)
	}
}

package flow

import (
	_ "embed"

	"github.com/defectdesk/defectdesk/pkg/model"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsRaw []byte

// prompts holds every user-facing text of the engine. Formatting verbs in
// the YAML are filled with fmt.Sprintf at the call site.
type promptSet struct {
	Help string `yaml:"help"`

	Register struct {
		Origin             string `yaml:"origin"`
		OriginInvalid      string `yaml:"origin_invalid"`
		Manufacturer       string `yaml:"manufacturer"`
		ManufacturerEmpty  string `yaml:"manufacturer_empty"`
		Model              string `yaml:"model"`
		ModelEmpty         string `yaml:"model_empty"`
		Description        string `yaml:"description"`
		DescriptionShort   string `yaml:"description_short"`
		VoiceProcessing    string `yaml:"voice_processing"`
		VoiceFailed        string `yaml:"voice_failed"`
		Choice             string `yaml:"choice"`
		ChoiceOriginalSave string `yaml:"choice_original_saved"`
		ChoiceSummarySave  string `yaml:"choice_summary_saved"`
		Rerecord           string `yaml:"rerecord"`
		Photos             string `yaml:"photos"`
		PhotoChecking      string `yaml:"photo_checking"`
		PhotoAccepted      string `yaml:"photo_accepted"`
		PhotoRejected      string `yaml:"photo_rejected"`
		PhotoFailed        string `yaml:"photo_failed"`
		Videos             string `yaml:"videos"`
		VideoAccepted      string `yaml:"video_accepted"`
		Saving             string `yaml:"saving"`
		Registered         string `yaml:"registered"`
	} `yaml:"register"`

	View struct {
		AskID        string `yaml:"ask_id"`
		NotFound     string `yaml:"not_found"`
		PhotosHeader string `yaml:"photos_header"`
		VideosHeader string `yaml:"videos_header"`
		PhotoCaption string `yaml:"photo_caption"`
		VideoCaption string `yaml:"video_caption"`
		EditOffer    string `yaml:"edit_offer"`
	} `yaml:"view"`

	Edit struct {
		AskID               string `yaml:"ask_id"`
		ChooseField         string `yaml:"choose_field"`
		ChooseInvalid       string `yaml:"choose_invalid"`
		CurrentManufacturer string `yaml:"current_manufacturer"`
		CurrentModel        string `yaml:"current_model"`
		CurrentDescription  string `yaml:"current_description"`
		ManufacturerUpdated string `yaml:"manufacturer_updated"`
		ModelUpdated        string `yaml:"model_updated"`
		DescriptionUpdated  string `yaml:"description_updated"`
		Photos              string `yaml:"photos"`
		Videos              string `yaml:"videos"`
		NothingToSave       string `yaml:"nothing_to_save"`
		MediaSaved          string `yaml:"media_saved"`
		Cancelled           string `yaml:"cancelled"`
	} `yaml:"edit"`

	Common struct {
		Cancelled         string `yaml:"cancelled"`
		NothingInProgress string `yaml:"nothing_in_progress"`
		StorageFailed     string `yaml:"storage_failed"`
		UnknownCommand    string `yaml:"unknown_command"`
	} `yaml:"common"`
}

var prompts = mustLoadPrompts()

func mustLoadPrompts() *promptSet {
	var p promptSet
	if err := yaml.Unmarshal(promptsRaw, &p); err != nil {
		panic("flow: broken embedded prompts.yaml: " + err.Error())
	}
	return &p
}

// Button payloads understood by the engine. The transport echoes these back
// verbatim in button events.
const (
	payloadBack         = "back"
	payloadOriginPrefix = "origin:"
	payloadPhotosMore   = "photos:more"
	payloadPhotosNext   = "photos:next"
	payloadVideosFinish = "videos:finish"
	payloadDescOriginal = "desc:original"
	payloadDescSummary  = "desc:summary"
	payloadDescRerecord = "desc:rerecord"
	payloadEditSave     = "edit:save"
	payloadEditCancel   = "edit:cancel"
	payloadEditPrefix   = "edit:id:"
)

func backButton() model.Button {
	return model.Button{Label: "Back", Payload: payloadBack}
}

func backKeyboard() []model.Button {
	return []model.Button{backButton()}
}

func originKeyboard() []model.Button {
	var buttons []model.Button
	for _, o := range model.Origins() {
		buttons = append(buttons, model.Button{
			Label:   o.Title(),
			Payload: payloadOriginPrefix + string(o),
		})
	}
	return append(buttons, backButton())
}

func descriptionChoiceKeyboard() []model.Button {
	return []model.Button{
		{Label: "Option 1 (original)", Payload: payloadDescOriginal},
		{Label: "Option 2 (summary)", Payload: payloadDescSummary},
		{Label: "Record again", Payload: payloadDescRerecord},
		backButton(),
	}
}

func photosKeyboard() []model.Button {
	return []model.Button{
		{Label: "Send more", Payload: payloadPhotosMore},
		{Label: "Continue", Payload: payloadPhotosNext},
		backButton(),
	}
}

func videosKeyboard() []model.Button {
	return []model.Button{
		{Label: "Finish", Payload: payloadVideosFinish},
		backButton(),
	}
}

func editControlKeyboard() []model.Button {
	return []model.Button{
		backButton(),
		{Label: "Cancel", Payload: payloadEditCancel},
	}
}

func editMediaKeyboard() []model.Button {
	return []model.Button{
		{Label: "Save changes", Payload: payloadEditSave},
		backButton(),
		{Label: "Cancel", Payload: payloadEditCancel},
	}
}

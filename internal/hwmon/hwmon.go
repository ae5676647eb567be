package hwmon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/md14454/gosensors"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

// HwMonController is a single lm-sensors chip
type HwMonController struct {
	Name     string
	DType    string
	Modalias string
	Platform string
	Path     string

	VoltageInputs []*VoltageInput
}

// VoltageInput is one in*_input of a chip, values are in volts as reported by libsensors
type VoltageInput struct {
	Label string
	Index int
	Input string
	Min   float64
	Max   float64
	Value float64
}

// GetChips returns all detected chips that expose at least one voltage input
func GetChips() []*HwMonController {
	gosensors.Init()
	defer gosensors.Cleanup()
	chips := gosensors.GetDetectedChips()

	var list []*HwMonController

	for i := 0; i < len(chips); i++ {
		chip := chips[i]

		var identifier = computeIdentifier(chip)
		dType := getDeviceType(chip.Path)
		modalias := getDeviceModalias(chip.Path)
		platform := findPlatform(chip.Path)
		if len(platform) <= 0 {
			platform = identifier
		}

		inputs := GetVoltageInputs(chip)
		if len(inputs) <= 0 {
			continue
		}

		c := &HwMonController{
			Name:          identifier,
			DType:         dType,
			Modalias:      modalias,
			Platform:      platform,
			Path:          chip.Path,
			VoltageInputs: inputs,
		}
		list = append(list, c)
	}

	return list
}

func GetVoltageInputs(chip gosensors.Chip) []*VoltageInput {
	var inputList []*VoltageInput

	features := chip.GetFeatures()
	for j := 0; j < len(features); j++ {
		feature := features[j]

		if feature.Type != gosensors.FeatureTypeIn {
			continue
		}

		subfeatures := feature.GetSubFeatures()
		if !containsSubFeature(subfeatures, gosensors.SubFeatureTypeInInput) {
			continue
		}

		inputSubFeature := getSubFeature(subfeatures, gosensors.SubFeatureTypeInInput)
		inputPath := fmt.Sprintf("%s/%s", chip.Path, inputSubFeature.Name)

		max := -1.0
		if containsSubFeature(subfeatures, gosensors.SubFeatureTypeInMax) {
			max = getSubFeature(subfeatures, gosensors.SubFeatureTypeInMax).GetValue()
		}

		min := -1.0
		if containsSubFeature(subfeatures, gosensors.SubFeatureTypeInMin) {
			min = getSubFeature(subfeatures, gosensors.SubFeatureTypeInMin).GetValue()
		}

		inputList = append(inputList, &VoltageInput{
			Label: getLabel(chip.Path, inputSubFeature.Name),
			Index: len(inputList) + 1,
			Input: inputPath,
			Min:   min,
			Max:   max,
			Value: inputSubFeature.GetValue(),
		})
	}

	return inputList
}

// FindVoltageInput returns the input with the given (1-based) index of the first controller
// whose platform matches the given regular expression
func FindVoltageInput(controllers []*HwMonController, platform string, index int) (*VoltageInput, error) {
	platformRegex, err := regexp.Compile(platform)
	if err != nil {
		return nil, fmt.Errorf("invalid platform expression '%s': %w", platform, err)
	}

	for _, c := range controllers {
		if !platformRegex.MatchString(c.Platform) {
			continue
		}
		for _, input := range c.VoltageInputs {
			if input.Index == index {
				return input, nil
			}
		}
	}

	return nil, fmt.Errorf("no voltage input with index %d found for platform '%s'", index, platform)
}

// UpdateSensorConfigFromHwMonControllers resolves the sysfs input path of a hwmon sensor config
func UpdateSensorConfigFromHwMonControllers(controllers []*HwMonController, config *configuration.HwMonSensorConfig) error {
	input, err := FindVoltageInput(controllers, config.Platform, config.Index)
	if err != nil {
		return err
	}
	config.VoltageInput = input.Input
	return nil
}

func getSubFeature(subfeatures []gosensors.SubFeature, input gosensors.SubFeatureType) gosensors.SubFeature {
	for _, a := range subfeatures {
		if a.Type == input {
			return a
		}
	}
	panic(errors.New(fmt.Sprintf("No such element: %v", input)))
}

func containsSubFeature(s []gosensors.SubFeature, e gosensors.SubFeatureType) bool {
	for _, a := range s {
		if a.Type == e {
			return true
		}
	}
	return false
}

// getLabel read the label of a in/output of a device
func getLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(devicePath+"/"+input, "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := string(content)
	if len(label) <= 0 {
		_, label = filepath.Split(devicePath)
	}
	return strings.TrimSpace(label)
}

func getDeviceName(devicePath string) string {
	content, _ := os.ReadFile(devicePath + "/name")
	return strings.TrimSpace(string(content))
}

func getDeviceModalias(devicePath string) string {
	content, _ := os.ReadFile(devicePath + "/device/modalias")
	return strings.TrimSpace(string(content))
}

func getDeviceType(devicePath string) string {
	content, _ := os.ReadFile(devicePath + "/device/type")
	return strings.TrimSpace(string(content))
}

func computeIdentifier(chip gosensors.Chip) (name string) {
	name = chip.Prefix

	devicePath := chip.Path
	if len(name) <= 0 {
		name = getDeviceName(devicePath)
	}

	if len(name) <= 0 {
		_, name = filepath.Split(devicePath)
	}

	identifier := name
	switch chip.Bus.Type {
	case BusTypeIsa:
		identifier = fmt.Sprintf("%s-isa-%d%03x", identifier, chip.Bus.Nr, chip.Addr)
	case BusTypePci:
		identifier = fmt.Sprintf("%s-pci-%d%03x", identifier, chip.Bus.Nr, chip.Addr)
	case BusTypeAcpi:
		identifier = fmt.Sprintf("%s-acpi-%d", identifier, chip.Bus.Nr)
	}

	return identifier
}

func findPlatform(devicePath string) string {
	platformRegex := regexp.MustCompile(".*/platform/[^/]+")
	match := platformRegex.FindString(devicePath)
	if len(match) <= 0 {
		return ""
	}
	_, platform := filepath.Split(match)
	return platform
}

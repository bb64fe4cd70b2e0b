package weather

// Icon ids understood by the watch face.
const (
	IconCloudy = 0
	IconSunny  = 1
	IconRain   = 2
	IconSnow   = 3
)

// Classify maps an OpenWeatherMap condition code to an icon id.
// The buckets are coarse and the boundaries are part of the device contract:
// below 600 (thunderstorm, drizzle, rain) is rain, 6xx is snow, 801+ is
// drawn as sunny and 700-800 falls through to cloudy.
func Classify(conditionCode int) int {
	if conditionCode < 600 {
		return IconRain
	} else if conditionCode < 700 {
		return IconSnow
	} else if conditionCode > 800 {
		return IconSunny
	}
	return IconCloudy
}

package normalize

// Canonical field tags used by the column mapper. Unknown headers pass
// through unmapped rather than erroring so new source variants degrade
// gracefully.
const (
	fieldDate          = "date"
	fieldDateHour      = "datehour"
	fieldHourUTC       = "hour_utc"
	fieldTemperature   = "temperature"
	fieldTempMax       = "temp_max"
	fieldTempMin       = "temp_min"
	fieldDewPoint      = "dew_point"
	fieldHumidity      = "humidity"
	fieldHumidityMax   = "humidity_max"
	fieldHumidityMin   = "humidity_min"
	fieldWindSpeed     = "wind_speed"
	fieldWindGust      = "wind_gust"
	fieldWindDirection = "wind_direction"
	fieldRadiation     = "radiation"
	fieldPrecipitation = "precipitation"
	fieldPressure      = "pressure"
	fieldStationCode   = "station_code"
	fieldLatitude      = "latitude"
	fieldLongitude     = "longitude"
	fieldAltitude      = "altitude"
	fieldRegion        = "uf"
)

// columnAliases maps every observed historical header spelling (trimmed,
// lowercased) to its canonical field tag. The archive spans decades of
// export formats, so the same physical quantity appears under several names.
var columnAliases = map[string]string{
	// Date/time.
	"data":              fieldDate,
	"data_medicao":      fieldDate,
	"date":              fieldDate,
	"data (yyyy-mm-dd)": fieldDate,
	"datahora":          fieldDateHour,
	"data_hora":         fieldDateHour,
	"hora_utc":          fieldHourUTC,
	"hora utc":          fieldHourUTC,
	"hora (utc)":        fieldHourUTC,
	"hora":              fieldHourUTC,
	"hr_utc":            fieldHourUTC,

	// Temperature, long INMET names then short forms.
	"temperatura do ar - bulbo seco, horaria (°c)":  fieldTemperature,
	"temperatura do ar - bulbo seco, horaria (c)":   fieldTemperature,
	"temperatura máxima na hora ant. (aut) (°c)":    fieldTempMax,
	"temperatura máxima na hora ant. (aut) (c)":     fieldTempMax,
	"temperatura mínima na hora ant. (aut) (°c)":    fieldTempMin,
	"temperatura mínima na hora ant. (aut) (c)":     fieldTempMin,
	"temperatura do ponto de orvalho (°c)":          fieldDewPoint,
	"temperatura do ponto de orvalho (c)":           fieldDewPoint,
	"temp_inst":                                     fieldTemperature,
	"temperatura":                                   fieldTemperature,
	"tem_ins":                                       fieldTemperature,
	"temp_ins_c":                                    fieldTemperature,
	"tempmax":                                       fieldTempMax,
	"temp_max":                                      fieldTempMax,
	"tem_max":                                       fieldTempMax,
	"tempmin":                                       fieldTempMin,
	"temp_min":                                      fieldTempMin,
	"tem_min":                                       fieldTempMin,
	"ponto_orvalho":                                 fieldDewPoint,
	"temp_ponto_orvalho":                            fieldDewPoint,

	// Humidity.
	"umidade relativa do ar, horaria (%)":      fieldHumidity,
	"umidade rel. max. na hora ant. (aut) (%)": fieldHumidityMax,
	"umidade rel. min. na hora ant. (aut) (%)": fieldHumidityMin,
	"umid_ins":                                 fieldHumidity,
	"umid_relativa":                            fieldHumidity,
	"umi_ins":                                  fieldHumidity,
	"umid_rel":                                 fieldHumidity,
	"umid_max":                                 fieldHumidityMax,
	"umid_min":                                 fieldHumidityMin,

	// Wind.
	"vento, velocidade horaria (m/s)":      fieldWindSpeed,
	"vento, rajada maxima (m/s)":           fieldWindGust,
	"vento, direção horaria (gr) (° (gr))": fieldWindDirection,
	"vento, direção horaria (gr) (gr)":     fieldWindDirection,
	"vel_vento":                            fieldWindSpeed,
	"velvento":                             fieldWindSpeed,
	"vel_vento_max":                        fieldWindGust,
	"direcao_vento":                        fieldWindDirection,
	"direcao_vento_rajada_max":             fieldWindDirection,

	// Radiation, precipitation, pressure.
	"radiacao global (kj/m²)":                                fieldRadiation,
	"radiacao global (kj/m2)":                                fieldRadiation,
	"precipitação total, horário (mm)":                       fieldPrecipitation,
	"precipitacao total, horario (mm)":                       fieldPrecipitation,
	"pressao atmosferica ao nivel da estacao, horaria (mb)":  fieldPressure,
	"pressão atmosferica ao nivel da estacao, horaria (mb)":  fieldPressure,
	"rad_glob":     fieldRadiation,
	"radiacao":     fieldRadiation,
	"precipitacao": fieldPrecipitation,
	"precip":       fieldPrecipitation,
	"prec_total":   fieldPrecipitation,
	"pressao":      fieldPressure,
	"pressao_atm":  fieldPressure,

	// Station identity and coordinates.
	"codigo (wmo)":   fieldStationCode,
	"codigo_estacao": fieldStationCode,
	"cd_estacao":     fieldStationCode,
	"estacao":        fieldStationCode,
	"latitude":       fieldLatitude,
	"vl_latitude":    fieldLatitude,
	"longitude":      fieldLongitude,
	"vl_longitude":   fieldLongitude,
	"altitude":       fieldAltitude,
	"vl_altitude":    fieldAltitude,
	"uf":             fieldRegion,
	"sigla_uf":       fieldRegion,
}

// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// setDefaultConfig seeds viper with the defaults a fresh installation
// should behave under before any config.yaml or flag override is applied.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "meteorscan")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/meteorscan.log")
	viper.SetDefault("main.log.rotation", string(RotationDaily))
	viper.SetDefault("main.log.maxsize", int64(100*1024*1024))

	viper.SetDefault("processing.threads", 0)

	viper.SetDefault("stations.codes", []string{})
	viper.SetDefault("stations.antennas", []int{})

	viper.SetDefault("repository.filedirectory", "")
	viper.SetDefault("repository.iswavtree", false)
	viper.SetDefault("repository.ftp.enabled", false)
	viper.SetDefault("repository.ftp.ratepers", 2.0)
	viper.SetDefault("repository.cachedir", "cache")
	viper.SetDefault("repository.minfreediskmb", int64(1024))

	viper.SetDefault("monitoring.intervalminutes", 5)
	viper.SetDefault("monitoring.overwrite", false)

	viper.SetDefault("plot.fmin", 500.0)
	viper.SetDefault("plot.fmax", 2000.0)

	viper.SetDefault("output.csv.enabled", true)
	viper.SetDefault("output.csv.destination", "detections.csv")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "meteorscan.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("mqtt.enabled", false)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", ":8080")
}

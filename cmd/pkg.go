/*
Layercache caches the layers of container images between CI pipeline runs. A pipeline
runs it twice: once before the build to restore images, and once after the build to
save the images that appeared in between.

Usage:

	layercache [global flags] restore|save|version [flags]

Global flags:

	--log-level string
		Minimum log level: trace, debug, info, warn, or error. Defaults to 'info'.
	--log-file string
		Logs to the specified file rather than the console.
	--config-file string
		A yaml file to load configuration from. Command line values take precedence.
	--work-dir string
		Where images are unpacked. Defaults to '.adlc' under the OS temp dir.
	--cache-dir string
		The directory holding the cache entries.
	--concurrency int
		Number of layers saved or restored at the same time. Defaults to 4.
	--skip-parallel
		Caches the images as one entry instead of one entry per layer.
	--filter string
		Engine filter for the image listing, e.g. 'reference=myorg/*'.
	--engine string
		The container engine binary. Defaults to 'docker'.
	--state-file string
		Carries state from the restore step to the save step.
	--metrics-file string
		Writes cache metrics in the Prometheus text format.

Restore flags:

	--key string
		The key template, e.g. 'Linux-node-{hash}'.
	--restore-keys string
		Newline-separated key prefixes tried if the key is not in the cache.

Save flags:

	--key string
		The key template, e.g. 'Linux-node-{hash}'.
	--skip-save
		Does not save anything.
*/
package main

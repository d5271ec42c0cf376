package globals

// ManifestFile is the name of the manifest written by the image engine at the root
// of an unpacked image archive
const ManifestFile = "manifest.json"

// LayerFile is the file name of one layer archive inside an unpacked image archive.
// The parent directory of a layer file is the layer ID.
const LayerFile = "layer.tar"

// ImageDir is the subdirectory under the working root that holds the unpacked image
// archive
const ImageDir = "image"

// LayersSuffix is appended to the unpacked image directory to get the directory that
// holds layer archives split out of the image tree
const LayersSuffix = "-layers"

// Placeholder is the token in a key template that is replaced by a hash
const Placeholder = "{hash}"

// RootSuffix is appended to a formatted key to get the key of a root cache entry
const RootSuffix = "-root"

// LayerPrefix is prepended to a formatted key to get the key of a layer cache entry
const LayerPrefix = "layer-"

// DefaultConcurrency is the number of layers stored or restored in parallel if not
// otherwise configured
const DefaultConcurrency = 4

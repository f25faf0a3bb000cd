// Packages lib acts as a library for modules that do not fit
// strictly into other layers.
//
// It contains the shared JSON codec (jsoncodec), used by payload
// decoding, backend encoding and the Echo serializer.
package lib

// Package translate sends batches of subtitle text to a machine translation
// provider. DeepL and Azure Translator are supported; both preserve input
// order so translations can be zipped back onto their segments.
package translate

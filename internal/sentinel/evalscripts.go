package sentinel

const evalscriptTrueColor = `
    //VERSION=3

    function setup() {
      return {
        input: [{
          bands: ["B02", "B03", "B04"]
        }],
        output: {
          bands: 3
        }
      };
    }

    function evaluatePixel(sample) {
      return [sample.B04, sample.B03, sample.B02];
    }
`

// Cloudy pixels are pushed towards red.
const evalscriptCloudMask = `
    //VERSION=3
    function setup() {
      return {
        input: ["B02", "B03", "B04", "CLM"],
        output: { bands: 3 }
      }
    }

    function evaluatePixel(sample) {
      if (sample.CLM == 1) {
        return [0.75 + sample.B04, sample.B03, sample.B02]
      }
      return [3.5*sample.B04, 3.5*sample.B03, 3.5*sample.B02];
    }
`

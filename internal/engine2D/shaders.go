package engine2D

// RGBA8 render textures cannot hold signed values, so displacement and motion
// are biased around 0.5:
//
//	displacement  r,g = d*DISP_SCALE + 0.5   b = acc*ACC_SCALE   a = 1
//	motion        r,g = m*MOTION_SCALE + 0.5                      a = 1
//
// The per-block random seed is rederived from position and motion length
// instead of being stored, which keeps alpha at one and blending harmless.
const shaderHeader = `#version 330
in vec2 fragTexCoord;
in vec4 fragColor;
out vec4 finalColor;

uniform sampler2D texture0;

uniform float u_BlockSize;
uniform float u_Quality;
uniform float u_Contrast;
uniform float u_Velocity;
uniform float u_Diffusion;
uniform vec2 u_Screen;
uniform vec2 u_Blocks;

const float DISP_SCALE = 2.0;
const float MOTION_SCALE = 8.0;
const float ACC_SCALE = 0.5;

float uvRandom(vec2 uv) {
    return fract(sin(dot(uv, vec2(12.9898, 78.233))) * 43758.5453);
}

vec2 decodeDisp(vec4 t) { return (t.xy - 0.5) / DISP_SCALE; }
float decodeAcc(vec4 t) { return t.b / ACC_SCALE; }
vec2 decodeMotion(vec4 t) { return (t.xy - 0.5) / MOTION_SCALE; }
`

const initFragment = shaderHeader + `
void main() {
    finalColor = vec4(0.5, 0.5, 0.0, 1.0);
}
`

const accumulateFragment = shaderHeader + `
uniform sampler2D u_Motion;
uniform float u_HasMotion;

void main() {
    vec2 uv = fragTexCoord;
    vec4 prev = texture(texture0, uv);
    float acc = decodeAcc(prev);

    float seed = acc + prev.x;
    vec3 r = vec3(uvRandom(uv + seed), uvRandom(uv + seed + 10.0), uvRandom(uv + seed + 20.0));

    vec2 mv = vec2(0.0);
    if (u_HasMotion > 0.5) {
        mv = decodeMotion(texture(u_Motion, uv));
    }
    vec2 px = mv * u_Velocity * u_Screen;
    px += (r.xy - 0.5) * u_Diffusion;
    px = floor(px + 0.5);
    float len = length(px);

    if (len > u_BlockSize) {
        acc = r.z * 0.5 + u_Quality;
    } else {
        acc += min(len, u_BlockSize) * 0.005 + r.z * mix(-0.02, 0.02, u_Quality);
    }

    vec2 d = clamp(px / u_Screen * DISP_SCALE + 0.5, 0.0, 1.0);
    finalColor = vec4(d, clamp(acc * ACC_SCALE, 0.0, 1.0), 1.0);
}
`

const moshFragment = shaderHeader + `
uniform sampler2D u_Work;
uniform sampler2D u_Disp;

void main() {
    vec2 uv = fragTexCoord;
    vec4 src = texture(texture0, uv);
    vec4 dt = texture(u_Disp, uv);
    vec2 d = decodeDisp(dt);

    if (decodeAcc(dt) > 1.0) {
        finalColor = vec4(src.rgb, 1.0);
        return;
    }

    vec3 work = texture(u_Work, uv - d * 0.98).rgb;

    vec2 block = floor(uv * u_Blocks) / u_Blocks;
    float seed = uvRandom(block + length(d * u_Screen));
    vec2 r = fract(vec2(1.0, 17.37135) * seed);

    float freq = r.x * 80.0 / max(u_Contrast, 0.01);
    vec2 p = uv * u_Blocks * freq;
    float dct = cos(p.x) * cos(p.y);
    float amp = (1.0 - u_Quality) * 0.1 * (r.y * 0.5 + 0.5);

    finalColor = vec4(work + dct * amp, 1.0);
}
`

const blitFragment = `#version 330
in vec2 fragTexCoord;
in vec4 fragColor;
out vec4 finalColor;
uniform sampler2D texture0;
void main() {
    finalColor = vec4(texture(texture0, fragTexCoord).rgb, 1.0);
}
`

// motionFragment writes the screen-space motion of a camera that panned by
// u_Pan and zoomed by u_Zoom around the view center since the last frame.
const motionFragment = `#version 330
in vec2 fragTexCoord;
in vec4 fragColor;
out vec4 finalColor;
uniform vec2 u_Pan;
uniform float u_Zoom;
const float MOTION_SCALE = 8.0;
void main() {
    vec2 m = u_Pan + (fragTexCoord - 0.5) * u_Zoom;
    finalColor = vec4(clamp(m * MOTION_SCALE + 0.5, 0.0, 1.0), 0.5, 1.0);
}
`
